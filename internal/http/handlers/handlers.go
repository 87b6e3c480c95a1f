package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/diagnosis/luxsuv-identity/internal/domain"
	"github.com/diagnosis/luxsuv-identity/internal/http/response"
	"github.com/diagnosis/luxsuv-identity/internal/service"
	"github.com/diagnosis/luxsuv-identity/pkg/config"
	"github.com/diagnosis/luxsuv-identity/pkg/logger"
	"github.com/diagnosis/luxsuv-identity/pkg/otp"
)

type Handlers struct {
	authService service.AuthService
	userService service.UserService
	config      *config.Config
}

func New(authService service.AuthService, userService service.UserService, config *config.Config) *Handlers {
	return &Handlers{
		authService: authService,
		userService: userService,
		config:      config,
	}
}

// writeServiceError maps the service error taxonomy to stable HTTP
// responses. Unclassified errors become a 500 without leaking detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, otp.ErrInvalidMobile):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrInvalidOTP):
		response.WriteError(w, http.StatusBadRequest, "Invalid or expired OTP", response.CodeInvalidOTP)
	case errors.Is(err, domain.ErrUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, domain.ErrUserInactive):
		response.Forbidden(w, "User is not active")
	case errors.Is(err, domain.ErrUserProtected):
		response.WriteError(w, http.StatusForbidden, "User is protected", response.CodeUserProtected)
	case errors.Is(err, domain.ErrDuplicateUser):
		response.Conflict(w, "Mobile or email already registered")
	case errors.Is(err, domain.ErrUnknownRole):
		response.BadRequest(w, "Unknown role")
	default:
		logger.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
		response.InternalError(w, "Internal server error")
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
