package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/govscheme-portal/internal/application/user"
	"github.com/govscheme-portal/internal/domain"
	"github.com/govscheme-portal/internal/pkg/validate"
	"github.com/govscheme-portal/internal/transport/http/middleware"
)

// UserHandler handles profile endpoints. Callers may only act on their own
// account unless they are administrators.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")
	if !authorizeSelf(w, r, targetID) {
		return
	}
	u, err := h.svc.Get(r.Context(), targetID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")
	if !authorizeSelf(w, r, targetID) {
		return
	}
	var req domain.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.svc.Update(r.Context(), targetID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func authorizeSelf(w http.ResponseWriter, r *http.Request, targetID string) bool {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if claims.UserID != targetID && claims.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "cannot access another user's profile")
		return false
	}
	return true
}
