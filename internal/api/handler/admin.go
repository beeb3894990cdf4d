package handler

import (
	"net/http"

	"github.com/mcoot/futebolada/internal/api/middleware"
	"github.com/mcoot/futebolada/internal/api/request"
	"github.com/mcoot/futebolada/internal/api/response"
	"github.com/mcoot/futebolada/internal/services/auth"
)

// AdminHandler handles user administration endpoints
type AdminHandler struct {
	authService *auth.Service
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService *auth.Service) *AdminHandler {
	return &AdminHandler{authService: authService}
}

// Promote handles POST /api/v1/admin/promote
func (h *AdminHandler) Promote(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetUser(r.Context())

	var req request.PromoteRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Email == "" {
		WriteError(w, NewInvalidRequestError("email is required"))
		return
	}

	user, err := h.authService.Promote(r.Context(), actor, req.Email)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}
