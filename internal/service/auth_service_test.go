package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diagnosis/luxsuv-identity/internal/domain"
	"github.com/diagnosis/luxsuv-identity/internal/notify"
	"github.com/diagnosis/luxsuv-identity/internal/service"
	"github.com/diagnosis/luxsuv-identity/pkg/auth"
	"github.com/diagnosis/luxsuv-identity/pkg/config"
	"github.com/diagnosis/luxsuv-identity/pkg/events"
	"github.com/diagnosis/luxsuv-identity/pkg/otp"
)

// ---------- Mocks ----------

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // keyed by id
}

func newMockUserRepo(users ...*domain.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Create(_ context.Context, id string, req *domain.CreateUserRequest) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Mobile == req.Mobile {
			return nil, domain.ErrDuplicateUser
		}
	}
	u := &domain.User{
		ID:     id,
		Name:   req.Name,
		Mobile: req.Mobile,
		Email:  req.Email,
		Gender: req.Gender,
		RoleID: int32(domain.RoleUser),
		Active: true,
	}
	m.users[id] = u
	return u, nil
}

func (m *mockUserRepo) FindByMobile(_ context.Context, mobile string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Mobile == mobile {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) StoreOTP(_ context.Context, id, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.OTPCode = &code
	u.OTPExpiresAt = &expiresAt
	return nil
}

func (m *mockUserRepo) ConsumeOTP(_ context.Context, id, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.OTPCode == nil {
		return false, nil
	}
	stored := *u.OTPCode
	expires := u.OTPExpiresAt
	// Clearing happens whether or not the match succeeds.
	u.OTPCode = nil
	past := time.Now().Add(-time.Hour)
	u.OTPExpiresAt = &past

	if expires == nil || time.Now().After(*expires) {
		return false, nil
	}
	return stored == code, nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, id string, req *domain.UpdateProfileRequest) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Email != nil {
		u.Email = req.Email
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) Update(_ context.Context, id string, req *domain.UpdateUserRequest) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if req.RoleID != nil {
		u.RoleID = *req.RoleID
	}
	if req.Active != nil {
		u.Active = *req.Active
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, _, _ int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockUserRepo) storedCode(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok && u.OTPCode != nil {
		return *u.OTPCode
	}
	return ""
}

type recordingSMSSender struct {
	mu   sync.Mutex
	sent []notify.SMSJob
}

func (s *recordingSMSSender) Send(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, notify.SMSJob{To: to, Body: body})
	return nil
}

func (s *recordingSMSSender) jobs() []notify.SMSJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.SMSJob(nil), s.sent...)
}

type recordingEmailSender struct {
	mu   sync.Mutex
	sent []notify.EmailJob
}

func (s *recordingEmailSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, notify.EmailJob{To: to, Subject: subject, Body: body})
	return nil
}

func (s *recordingEmailSender) jobs() []notify.EmailJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.EmailJob(nil), s.sent...)
}

// ---------- Fixtures ----------

func testConfig(env string) *config.Config {
	return &config.Config{
		Env: env,
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			SessionTTL: 2400 * time.Hour,
			OTPTTL:     time.Minute,
			CookieName: "auth_token",
		},
	}
}

type fixture struct {
	repo       *mockUserRepo
	svc        service.AuthService
	codec      *auth.Codec
	smsSender  *recordingSMSSender
	mailSender *recordingEmailSender
	dispatcher *notify.Dispatcher
}

func newFixture(t *testing.T, env string, users ...*domain.User) *fixture {
	t.Helper()

	codec, err := auth.NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	smsSender := &recordingSMSSender{}
	mailSender := &recordingEmailSender{}
	dispatcher := notify.NewDispatcher(smsSender, mailSender)
	dispatcher.Start(context.Background())

	repo := newMockUserRepo(users...)
	svc := service.NewAuthService(repo, dispatcher, codec, events.NoopPublisher{}, testConfig(env))

	return &fixture{
		repo:       repo,
		svc:        svc,
		codec:      codec,
		smsSender:  smsSender,
		mailSender: mailSender,
		dispatcher: dispatcher,
	}
}

func activeUser(id, mobile string, email *string) *domain.User {
	return &domain.User{
		ID:     id,
		Name:   "Ahmed",
		Mobile: mobile,
		Email:  email,
		RoleID: int32(domain.RoleUser),
		Active: true,
	}
}

func strPtr(s string) *string { return &s }

// ---------- Login ----------

func TestLoginInvalidMobileProduction(t *testing.T) {
	f := newFixture(t, "production")
	defer f.dispatcher.Shutdown()

	_, err := f.svc.Login(context.Background(), "123")
	if !errors.Is(err, otp.ErrInvalidMobile) {
		t.Errorf("got %v, want ErrInvalidMobile", err)
	}
}

func TestLoginUserNotFound(t *testing.T) {
	f := newFixture(t, "development")
	defer f.dispatcher.Shutdown()

	_, err := f.svc.Login(context.Background(), "0512345678")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	u := activeUser("u-1", "0512345678", nil)
	u.Active = false
	f := newFixture(t, "development", u)
	defer f.dispatcher.Shutdown()

	_, err := f.svc.Login(context.Background(), "0512345678")
	if !errors.Is(err, domain.ErrUserInactive) {
		t.Errorf("got %v, want ErrUserInactive", err)
	}
}

func TestLoginNonProductionUsesFixedCodeAndSendsNothing(t *testing.T) {
	f := newFixture(t, "development", activeUser("u-1", "0512345678", strPtr("ahmed@example.com")))

	user, err := f.svc.Login(context.Background(), "0512345678")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != "u-1" {
		t.Errorf("got user %q, want u-1", user.ID)
	}

	if code := f.repo.storedCode("u-1"); code != otp.FixedCode {
		t.Errorf("stored code %q, want fixed code %q", code, otp.FixedCode)
	}

	f.dispatcher.Shutdown()
	if n := len(f.smsSender.jobs()); n != 0 {
		t.Errorf("sent %d SMS outside production, want 0", n)
	}
	if n := len(f.mailSender.jobs()); n != 0 {
		t.Errorf("sent %d emails outside production, want 0", n)
	}
}

func TestLoginProductionEnqueuesSMSAndEmail(t *testing.T) {
	f := newFixture(t, "production", activeUser("u-1", "966512345678", strPtr("ahmed@example.com")))

	if _, err := f.svc.Login(context.Background(), "0512345678"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	code := f.repo.storedCode("u-1")
	if len(code) != 6 {
		t.Fatalf("stored code %q, want 6-digit production code", code)
	}

	f.dispatcher.Shutdown()

	smsJobs := f.smsSender.jobs()
	if len(smsJobs) != 1 {
		t.Fatalf("got %d SMS jobs, want exactly 1", len(smsJobs))
	}
	if smsJobs[0].To != "966512345678" {
		t.Errorf("SMS to %q, want normalized mobile", smsJobs[0].To)
	}
	if !strings.Contains(smsJobs[0].Body, code) {
		t.Errorf("SMS body %q does not contain the stored code %q", smsJobs[0].Body, code)
	}

	emailJobs := f.mailSender.jobs()
	if len(emailJobs) != 1 {
		t.Fatalf("got %d email jobs, want exactly 1", len(emailJobs))
	}
	if emailJobs[0].To != "ahmed@example.com" {
		t.Errorf("email to %q, want the principal's email", emailJobs[0].To)
	}
}

func TestLoginProductionWithoutEmailEnqueuesOnlySMS(t *testing.T) {
	f := newFixture(t, "production", activeUser("u-1", "966512345678", nil))

	if _, err := f.svc.Login(context.Background(), "0512345678"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	f.dispatcher.Shutdown()

	if n := len(f.smsSender.jobs()); n != 1 {
		t.Errorf("got %d SMS jobs, want 1", n)
	}
	if n := len(f.mailSender.jobs()); n != 0 {
		t.Errorf("got %d email jobs, want 0 for a principal without email", n)
	}
}

// ---------- Verify ----------

func TestVerifySuccess(t *testing.T) {
	f := newFixture(t, "development", activeUser("u-1", "0512345678", nil))
	defer f.dispatcher.Shutdown()
	ctx := context.Background()

	if _, err := f.svc.Login(ctx, "0512345678"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	result, err := f.svc.Verify(ctx, "0512345678", otp.FixedCode)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	claims, err := f.codec.Parse(result.Token)
	if err != nil {
		t.Fatalf("Parse issued token: %v", err)
	}
	if claims.Sub != "u-1" {
		t.Errorf("token subject %q, want u-1", claims.Sub)
	}
	if result.User.Role != "user" {
		t.Errorf("profile role %q, want %q", result.User.Role, "user")
	}
}

func TestVerifyWrongCode(t *testing.T) {
	f := newFixture(t, "development", activeUser("u-1", "0512345678", nil))
	defer f.dispatcher.Shutdown()
	ctx := context.Background()

	if _, err := f.svc.Login(ctx, "0512345678"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := f.svc.Verify(ctx, "0512345678", "00000"); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Errorf("got %v, want ErrInvalidOTP", err)
	}
}

func TestVerifyCodeIsSingleUse(t *testing.T) {
	f := newFixture(t, "development", activeUser("u-1", "0512345678", nil))
	defer f.dispatcher.Shutdown()
	ctx := context.Background()

	if _, err := f.svc.Login(ctx, "0512345678"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := f.svc.Verify(ctx, "0512345678", otp.FixedCode); err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	if _, err := f.svc.Verify(ctx, "0512345678", otp.FixedCode); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Errorf("second Verify: got %v, want ErrInvalidOTP (code consumed)", err)
	}
}

func TestVerifyWrongAttemptInvalidatesCode(t *testing.T) {
	f := newFixture(t, "development", activeUser("u-1", "0512345678", nil))
	defer f.dispatcher.Shutdown()
	ctx := context.Background()

	if _, err := f.svc.Login(ctx, "0512345678"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := f.svc.Verify(ctx, "0512345678", "00000"); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Fatalf("got %v, want ErrInvalidOTP", err)
	}
	// The failed attempt cleared the code; the correct one no longer works.
	if _, err := f.svc.Verify(ctx, "0512345678", otp.FixedCode); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Errorf("got %v, want ErrInvalidOTP after the code was cleared", err)
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	u := activeUser("u-1", "0512345678", nil)
	code := otp.FixedCode
	past := time.Now().Add(-time.Minute)
	u.OTPCode = &code
	u.OTPExpiresAt = &past

	f := newFixture(t, "development", u)
	defer f.dispatcher.Shutdown()

	if _, err := f.svc.Verify(context.Background(), "0512345678", code); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Errorf("got %v, want ErrInvalidOTP for an expired code", err)
	}
}

func TestVerifyUnknownMobile(t *testing.T) {
	f := newFixture(t, "development")
	defer f.dispatcher.Shutdown()

	if _, err := f.svc.Verify(context.Background(), "0512345678", otp.FixedCode); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}

// ---------- Register ----------

func TestRegisterNormalizesMobile(t *testing.T) {
	f := newFixture(t, "production")
	defer f.dispatcher.Shutdown()

	user, err := f.svc.Register(context.Background(), &domain.CreateUserRequest{
		Name:   "Ahmed",
		Mobile: "0512345678",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Mobile != "966512345678" {
		t.Errorf("got mobile %q, want normalized %q", user.Mobile, "966512345678")
	}
	if user.Role != "user" {
		t.Errorf("got role %q, want default %q", user.Role, "user")
	}
}

func TestRegisterDuplicateMobile(t *testing.T) {
	f := newFixture(t, "development", activeUser("u-1", "0512345678", nil))
	defer f.dispatcher.Shutdown()

	_, err := f.svc.Register(context.Background(), &domain.CreateUserRequest{Mobile: "0512345678"})
	if !errors.Is(err, domain.ErrDuplicateUser) {
		t.Errorf("got %v, want ErrDuplicateUser", err)
	}
}
