package handlers

import (
	"net/http"

	"github.com/Sumit771/1-2-1/internal/service"
	"github.com/Sumit771/1-2-1/pkg/validator"
)

type AdminHandler struct {
	userService *service.UserService
}

func NewAdminHandler(userService *service.UserService) *AdminHandler {
	return &AdminHandler{userService: userService}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.AdminList(r.Context())
	if err != nil {
		writeServiceError(w, r, "admin list users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.ValidateRegister(input.Email, input.Username, input.Password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.userService.AdminCreate(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, "admin create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateUserInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.ValidateUserUpdate(input.Email, input.Username, input.Password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.userService.AdminUpdate(r.Context(), r.PathValue("id"), input)
	if err != nil {
		writeServiceError(w, r, "admin update user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.AdminDelete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, "admin delete user", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
