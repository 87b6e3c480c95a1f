package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/diagnosis/luxsuv-identity/internal/domain"
	"github.com/diagnosis/luxsuv-identity/internal/http/response"
)

// Register creates a new principal with a normalized mobile number.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if req.Mobile == "" {
		response.BadRequest(w, "Mobile is required")
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created",
		"user":    user,
	})
}

// Login mints an OTP for the principal and queues its delivery. The HTTP
// response only confirms the code was issued; sending happens in the
// background workers.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mobile string `json:"mobile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mobile == "" {
		response.BadRequest(w, "Mobile is required")
		return
	}

	user, err := h.authService.Login(r.Context(), req.Mobile)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "OTP generated for this mobile... Sending SMS",
		"user":    user,
	})
}

// Verify consumes the OTP and establishes the session. The token is
// returned in the body and set as an http-only cookie.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mobile string `json:"mobile"`
		OTP    string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mobile == "" || req.OTP == "" {
		response.BadRequest(w, "Mobile and otp are required")
		return
	}

	result, err := h.authService.Verify(r.Context(), req.Mobile, req.OTP)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Auth.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(result.ExpiresIn / time.Second),
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":          "User Verified",
		"auth_token":       result.Token,
		"token_expires_in": result.ExpiresIn.String(),
		"user":             result.User,
	})
}

// Logout clears the session cookie. It never fails.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteStrictMode,
	})

	response.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "User logged out successfully",
	})
}
