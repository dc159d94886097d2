package ws

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"nhooyr.io/websocket"

	"github.com/Sumit771/1-2-1/internal/chat"
	"github.com/Sumit771/1-2-1/internal/domain"
	"github.com/Sumit771/1-2-1/internal/transport/http/middleware"
	"github.com/Sumit771/1-2-1/pkg/log"
)

// Handler upgrades authenticated requests to WebSocket sessions.
type Handler struct {
	base     context.Context
	sessions *chat.SessionManager
	opts     Options
}

// NewHandler returns the /ws endpoint. Every live connection is closed
// once base is cancelled.
func NewHandler(base context.Context, sessions *chat.SessionManager, opts Options) *Handler {
	return &Handler{base: base, sessions: sessions, opts: opts.withDefaults()}
}

// ServeHTTP authenticates before the upgrade. The token comes from an
// Authorization header or, since browsers cannot set headers on a
// WebSocket, from ?token=.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	user, err := h.sessions.Authenticate(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			http.Error(w, domain.PublicMessage(err, "Authentication error"), http.StatusUnauthorized)
			return
		}
		l := log.Ctx(r.Context())
		l.Error().Err(err).Msg("ws: authenticate")
		http.Error(w, "Authentication error", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		l := log.Ctx(r.Context())
		l.Warn().Err(err).Msg("ws: accept")
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	client := newClient(conn, user.ID, h.sessions, h.opts)
	client.session = h.sessions.Open(user, client)

	client.run(ctx)

	h.sessions.Disconnect(context.WithoutCancel(r.Context()), client.session)
	client.closeWith(websocket.StatusNormalClosure, "")
}

// OriginPatterns turns a CORS origin such as "http://localhost:5173" into
// the host pattern the WebSocket accept check expects.
func OriginPatterns(origin string) []string {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return nil
	}
	if origin == "*" {
		return []string{"*"}
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return []string{origin}
	}
	return []string{u.Host}
}
