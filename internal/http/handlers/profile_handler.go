package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/luxsuv-identity/internal/domain"
	mw "github.com/diagnosis/luxsuv-identity/internal/http/middleware"
	"github.com/diagnosis/luxsuv-identity/internal/http/response"
)

// GetProfile returns the identity the auth interceptor attached.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	user := mw.AuthUser(r)
	if user == nil {
		response.Unauthorized(w, "no authenticated identity", response.CodeUnauthorized)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user": user,
	})
}

// UpdateProfile updates the caller's own record. Protected principals
// cannot be modified.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := mw.AuthUser(r)
	if user == nil {
		response.Unauthorized(w, "no authenticated identity", response.CodeUnauthorized)
		return
	}

	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user.ID, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile updated",
		"user":    updated,
	})
}
