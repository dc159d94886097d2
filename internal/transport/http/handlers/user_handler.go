package handlers

import (
	"net/http"

	"github.com/Sumit771/1-2-1/internal/service"
	"github.com/Sumit771/1-2-1/internal/transport/http/middleware"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Search(r.Context(), middleware.GetUserID(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, "search users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}
