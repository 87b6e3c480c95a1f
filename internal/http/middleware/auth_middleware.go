package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/diagnosis/luxsuv-identity/internal/domain"
	"github.com/diagnosis/luxsuv-identity/internal/http/response"
	"github.com/diagnosis/luxsuv-identity/pkg/auth"
	"github.com/diagnosis/luxsuv-identity/pkg/logger"
)

type ctxKey string

const ctxAuthUser ctxKey = "auth_user"

// UserLoader re-loads the current identity on every authenticated request,
// so deactivations and role changes take effect before token expiry.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Auth gates protected routes: token extraction, validation, identity load,
// then the sanitized identity is attached to the request context.
type Auth struct {
	codec      *auth.Codec
	users      UserLoader
	cookieName string
}

func NewAuth(codec *auth.Codec, users UserLoader, cookieName string) *Auth {
	return &Auth{codec: codec, users: users, cookieName: cookieName}
}

// extractToken looks in the session cookie first, then the Authorization
// header. Both transports are accepted on input.
func (a *Auth) extractToken(r *http.Request) string {
	if c, err := r.Cookie(a.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return ""
}

// authenticate runs the shared pipeline and writes the rejection itself.
// The returned user is nil when the request has already been answered.
func (a *Auth) authenticate(w http.ResponseWriter, r *http.Request) *domain.User {
	token := a.extractToken(r)
	if token == "" {
		response.Unauthorized(w, "missing authentication token", response.CodeMissingToken)
		return nil
	}

	claims, err := a.codec.Parse(token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			response.Unauthorized(w, "token is expired", response.CodeExpiredToken)
		default:
			response.Unauthorized(w, "invalid authentication token", response.CodeInvalidToken)
		}
		return nil
	}

	user, err := a.users.FindByID(r.Context(), claims.Sub)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load identity", "error", err, "user_id", claims.Sub)
		response.InternalError(w, "failed to load identity")
		return nil
	}
	if user == nil {
		response.Unauthorized(w, "unknown identity", response.CodeUnauthorized)
		return nil
	}

	return user
}

func attach(r *http.Request, w http.ResponseWriter, user *domain.User) (*http.Request, bool) {
	authUser, err := domain.NewAuthUser(user)
	if err != nil {
		// A role id outside the closed set is a data-integrity error, not
		// a client mistake.
		logger.ErrorContext(r.Context(), "corrupt user record", "error", err, "user_id", user.ID)
		response.InternalError(w, "corrupt user record")
		return nil, false
	}

	ctx := context.WithValue(r.Context(), ctxAuthUser, authUser)
	ctx = context.WithValue(ctx, logger.UserIDKey, user.ID)
	return r.WithContext(ctx), true
}

// RequireAuth is the auth interceptor for protected routes.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := a.authenticate(w, r)
		if user == nil {
			return
		}

		r, ok := attach(r, w, user)
		if !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoles wraps the full auth pipeline and additionally enforces role
// membership and active status before the handler runs.
func (a *Auth) RequireRoles(allowed ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := a.authenticate(w, r)
			if user == nil {
				return
			}

			role, err := user.Role()
			if err != nil {
				logger.ErrorContext(r.Context(), "corrupt user record", "error", err, "user_id", user.ID)
				response.InternalError(w, "corrupt user record")
				return
			}

			permitted := false
			for _, want := range allowed {
				if role == want {
					permitted = true
					break
				}
			}
			if !permitted {
				response.Forbidden(w, "you don't have the required role")
				return
			}

			if !user.Active {
				response.Forbidden(w, "user is not active")
				return
			}

			r, ok := attach(r, w, user)
			if !ok {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthUser returns the sanitized identity attached by the interceptor, or
// nil when the route is not behind one.
func AuthUser(r *http.Request) *domain.AuthUser {
	v := r.Context().Value(ctxAuthUser)
	if v == nil {
		return nil
	}
	return v.(*domain.AuthUser)
}
