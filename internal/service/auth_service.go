package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/luxsuv-identity/internal/domain"
	"github.com/diagnosis/luxsuv-identity/internal/notify"
	"github.com/diagnosis/luxsuv-identity/internal/repo/postgres"
	"github.com/diagnosis/luxsuv-identity/pkg/auth"
	"github.com/diagnosis/luxsuv-identity/pkg/config"
	"github.com/diagnosis/luxsuv-identity/pkg/events"
	"github.com/diagnosis/luxsuv-identity/pkg/logger"
	"github.com/diagnosis/luxsuv-identity/pkg/otp"
)

type VerifyResult struct {
	Token     string
	ExpiresIn time.Duration
	User      *domain.AuthUser
}

type AuthService interface {
	Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.AuthUser, error)
	Login(ctx context.Context, mobile string) (*domain.AuthUser, error)
	Verify(ctx context.Context, mobile, code string) (*VerifyResult, error)
}

type authService struct {
	userRepo   postgres.UserRepository
	dispatcher *notify.Dispatcher
	codec      *auth.Codec
	eventBus   events.Publisher
	config     *config.Config
}

func NewAuthService(
	userRepo postgres.UserRepository,
	dispatcher *notify.Dispatcher,
	codec *auth.Codec,
	eventBus events.Publisher,
	config *config.Config,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		dispatcher: dispatcher,
		codec:      codec,
		eventBus:   eventBus,
		config:     config,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.CreateUserRequest) (*domain.AuthUser, error) {
	mobile, err := otp.NormalizeMobile(req.Mobile, s.config.IsProduction())
	if err != nil {
		return nil, err
	}
	req.Mobile = mobile

	user, err := s.userRepo.Create(ctx, uuid.NewString(), req)
	if err != nil {
		if err == domain.ErrDuplicateUser {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return domain.NewAuthUser(user)
}

// Login moves a principal from unauthenticated to OTP-issued. It mints a
// code, persists it with a short TTL and enqueues the delivery jobs. The
// response does not wait for delivery; once enqueued, sends are
// fire-and-forget.
func (s *authService) Login(ctx context.Context, rawMobile string) (*domain.AuthUser, error) {
	production := s.config.IsProduction()

	mobile, err := otp.NormalizeMobile(rawMobile, production)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByMobile(ctx, mobile)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}

	code := otp.Generate(production)
	expiresAt := time.Now().Add(s.config.Auth.OTPTTL)

	if err := s.userRepo.StoreOTP(ctx, user.ID, code, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}

	if production {
		body := fmt.Sprintf("Login OTP: %s", code)

		if err := s.dispatcher.EnqueueSMS(ctx, notify.SMSJob{To: mobile, Body: body}); err != nil {
			logger.ErrorContext(ctx, "failed to queue SMS", "error", err, "user_id", user.ID)
			return nil, fmt.Errorf("failed to queue sms: %w", err)
		}

		if user.Email != nil {
			job := notify.EmailJob{To: *user.Email, Subject: "Login OTP", Body: body}
			if err := s.dispatcher.EnqueueEmail(ctx, job); err != nil {
				logger.ErrorContext(ctx, "failed to queue email", "error", err, "user_id", user.ID)
				return nil, fmt.Errorf("failed to queue email: %w", err)
			}
		}
	}

	if err := s.eventBus.Publish(ctx, events.SubjectOTPIssued, map[string]string{"user_id": user.ID}); err != nil {
		logger.WarnContext(ctx, "failed to publish otp event", "error", err, "user_id", user.ID)
	}

	return domain.NewAuthUser(user)
}

// Verify consumes the stored code and, on success, mints the session token.
// The code is single-use: the repository clears it whether or not it
// matches.
func (s *authService) Verify(ctx context.Context, mobile, code string) (*VerifyResult, error) {
	user, err := s.userRepo.FindByMobile(ctx, mobile)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	ok, err := s.userRepo.ConsumeOTP(ctx, user.ID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to consume otp: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidOTP
	}

	token, err := s.codec.Issue(user.ID, s.config.Auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	authUser, err := domain.NewAuthUser(user)
	if err != nil {
		return nil, err
	}

	if err := s.eventBus.Publish(ctx, events.SubjectUserVerified, map[string]string{"user_id": user.ID}); err != nil {
		logger.WarnContext(ctx, "failed to publish verify event", "error", err, "user_id", user.ID)
	}

	return &VerifyResult{
		Token:     token,
		ExpiresIn: s.config.Auth.SessionTTL,
		User:      authUser,
	}, nil
}
