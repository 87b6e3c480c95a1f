package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/luxsuv-identity/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, id string, req *domain.CreateUserRequest) (*domain.User, error)
	FindByMobile(ctx context.Context, mobile string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	StoreOTP(ctx context.Context, id, code string, expiresAt time.Time) error
	ConsumeOTP(ctx context.Context, id, code string) (bool, error)
	UpdateProfile(ctx context.Context, id string, req *domain.UpdateProfileRequest) (*domain.User, error)
	Update(ctx context.Context, id string, req *domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `id, name, mobile, email, gender, role_id, active, protected, mobile_token, mobile_token_expire_at, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var active, protected int16
	err := row.Scan(
		&u.ID, &u.Name, &u.Mobile, &u.Email, &u.Gender, &u.RoleID,
		&active, &protected, &u.OTPCode, &u.OTPExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	// The columns are SMALLINT 0/1 flags; any non-zero value reads as true.
	u.Active = active != 0
	u.Protected = protected != 0
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, id string, req *domain.CreateUserRequest) (*domain.User, error) {
	const q = `
		INSERT INTO users (id, name, mobile, email, gender, role_id, active, protected)
		VALUES ($1, $2, $3, $4, $5, $6, 1, 0)
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id, req.Name, req.Mobile, req.Email, req.Gender, int32(domain.RoleUser)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateUser
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) FindByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE mobile = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, mobile))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) StoreOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	const q = `
		UPDATE users
		SET mobile_token = $2, mobile_token_expire_at = $3, updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id, code, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeOTP clears the stored code in the same statement that checks it.
// The row lock inside the subquery means two concurrent verify calls for the
// same principal cannot both observe the code as present.
func (r *userRepository) ConsumeOTP(ctx context.Context, id, code string) (bool, error) {
	const q = `
		UPDATE users u
		SET mobile_token = NULL,
		    mobile_token_expire_at = now() - interval '1 hour',
		    updated_at = now()
		FROM (
			SELECT id, mobile_token, mobile_token_expire_at
			FROM users
			WHERE id = $1
			FOR UPDATE
		) prev
		WHERE u.id = prev.id AND prev.mobile_token IS NOT NULL
		RETURNING prev.mobile_token = $2 AND prev.mobile_token_expire_at > now()`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var matched bool
	err := r.pool.QueryRow(ctx, q, id, code).Scan(&matched)
	if err == pgx.ErrNoRows {
		// No active code to consume.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return matched, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, req *domain.UpdateProfileRequest) (*domain.User, error) {
	const q = `
		UPDATE users
		SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			gender = COALESCE($4, gender),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id, req.Name, req.Email, req.Gender))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateUser
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, id string, req *domain.UpdateUserRequest) (*domain.User, error) {
	const q = `
		UPDATE users
		SET
			name = COALESCE($2, name),
			role_id = COALESCE($3, role_id),
			active = COALESCE($4, active),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var active *int16
	if req.Active != nil {
		v := int16(0)
		if *req.Active {
			v = 1
		}
		active = &v
	}

	u, err := scanUser(r.pool.QueryRow(ctx, q, id, req.Name, req.RoleID, active))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
