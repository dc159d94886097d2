package handlers

import (
	"net/http"

	"github.com/Sumit771/1-2-1/internal/transport/http/middleware"
)

// RouterConfig carries everything the HTTP surface is built from.
type RouterConfig struct {
	Auth   *AuthHandler
	Users  *UserHandler
	Chat   *ChatHandler
	Images *ImageHandler
	Admin  *AdminHandler
	// WebSocket serves the realtime endpoint at /ws.
	WebSocket http.Handler

	Tokens     middleware.TokenParser
	AdminToken string
	CORSOrigin string

	APILimiter    *middleware.RateLimiter
	AuthLimiter   *middleware.RateLimiter
	UploadLimiter *middleware.RateLimiter
}

func NewRouter(cfg RouterConfig) http.Handler {
	auth := middleware.Auth(cfg.Tokens)
	authQuery := middleware.AuthAllowQuery(cfg.Tokens)
	admin := middleware.Admin(cfg.AdminToken)

	api := func(h http.Handler) http.Handler { return h }
	if cfg.APILimiter != nil {
		api = cfg.APILimiter.Middleware
	}
	limited := func(l *middleware.RateLimiter, h http.Handler) http.Handler {
		if l == nil {
			return h
		}
		return l.Middleware(h)
	}

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("POST /api/auth/register", limited(cfg.AuthLimiter, http.HandlerFunc(cfg.Auth.Register)))
	mux.Handle("POST /api/auth/login", limited(cfg.AuthLimiter, http.HandlerFunc(cfg.Auth.Login)))

	// Protected
	mux.Handle("GET /api/auth/me", api(auth(http.HandlerFunc(cfg.Auth.Me))))
	mux.Handle("GET /api/users", api(auth(http.HandlerFunc(cfg.Users.List))))
	mux.Handle("GET /api/users/search", api(auth(http.HandlerFunc(cfg.Users.Search))))

	mux.Handle("POST /api/chat/rooms", api(auth(http.HandlerFunc(cfg.Chat.CreateRoom))))
	mux.Handle("GET /api/chat/rooms", api(auth(http.HandlerFunc(cfg.Chat.ListRooms))))
	mux.Handle("GET /api/chat/rooms/{roomId}/messages", api(auth(http.HandlerFunc(cfg.Chat.RoomMessages))))
	mux.Handle("GET /api/chat/stats", api(auth(http.HandlerFunc(cfg.Chat.Stats))))
	mux.Handle("GET /api/chat/online-users", api(auth(http.HandlerFunc(cfg.Chat.OnlineUsers))))
	mux.Handle("GET /api/chat/config", api(auth(http.HandlerFunc(cfg.Chat.Config))))

	mux.Handle("POST /api/images/upload", limited(cfg.UploadLimiter, auth(http.HandlerFunc(cfg.Images.Upload))))
	mux.Handle("GET /api/images/{filename}", authQuery(http.HandlerFunc(cfg.Images.Serve)))

	// Admin
	mux.Handle("GET /api/admin/users", admin(http.HandlerFunc(cfg.Admin.ListUsers)))
	mux.Handle("POST /api/admin/users", admin(http.HandlerFunc(cfg.Admin.CreateUser)))
	mux.Handle("PUT /api/admin/users/{id}", admin(http.HandlerFunc(cfg.Admin.UpdateUser)))
	mux.Handle("DELETE /api/admin/users/{id}", admin(http.HandlerFunc(cfg.Admin.DeleteUser)))

	if cfg.WebSocket != nil {
		mux.Handle("GET /ws", cfg.WebSocket)
	}

	return middleware.Logging(middleware.CORS(cfg.CORSOrigin)(mux))
}
