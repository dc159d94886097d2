package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/Sumit771/1-2-1/internal/chat"
	"github.com/Sumit771/1-2-1/pkg/log"
)

// Options tune a single connection.
type Options struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBuffer     int
	// OriginPatterns are the host patterns allowed to open a socket from a
	// browser. Requests without an Origin header are always accepted.
	OriginPatterns []string
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 << 10
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	return o
}

// Client represents a single WebSocket connection. It implements chat.Conn.
type Client struct {
	id       string
	userID   string
	conn     *websocket.Conn
	sessions *chat.SessionManager
	session  *chat.Session
	opts     Options
	log      zerolog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, userID string, sessions *chat.SessionManager, opts Options) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		userID:   userID,
		conn:     conn,
		sessions: sessions,
		opts:     opts,
		log:      log.L().With().Str(log.FieldConnID, id).Str(log.FieldUserID, userID).Logger(),
		send:     make(chan []byte, opts.SendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

// Send queues evt for the write pump. It reports false only when the
// outbound buffer is full.
func (c *Client) Send(evt chat.Event) bool {
	data, err := encodeFrame(evt.Type, "", evt.Payload)
	if err != nil {
		c.log.Error().Err(err).Str(log.FieldEvent, evt.Type).Msg("ws: encode event")
		return true
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close drops the connection. The read pump then returns and the session
// is torn down by the handler.
func (c *Client) Close() {
	c.closeWith(websocket.StatusPolicyViolation, "send buffer full")
}

func (c *Client) closeWith(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close(code, reason)
	})
}

// run pumps frames until the connection ends or ctx is cancelled.
func (c *Client) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump(ctx)
	}()

	c.readPump(ctx)
	cancel()
	wg.Wait()
}

// readPump reads frames and routes them to the session manager.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				c.log.Debug().Msg("ws: client disconnected")
			} else {
				c.log.Debug().Err(err).Msg("ws: read error")
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Type == "" {
			c.sendError("", "INVALID_FRAME", "Frame must be a JSON object with a type")
			continue
		}
		c.handleFrame(ctx, &f)
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, c.opts.WriteWait)
			err := c.conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					c.log.Warn().Err(err).Msg("ws: write error")
					c.closeWith(websocket.StatusInternalError, "write failed")
				}
				return
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, c.opts.WriteWait)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					c.log.Warn().Err(err).Msg("ws: ping failed")
					c.closeWith(websocket.StatusGoingAway, "ping timeout")
				}
				return
			}

		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// handleFrame dispatches one client frame. Request events always get
// exactly one ack, even when their payload cannot be decoded.
func (c *Client) handleFrame(ctx context.Context, f *Frame) {
	switch f.Type {
	case TypeMessageSend:
		var req chat.SendMessageRequest
		if err := decodePayload(f, &req); err != nil {
			c.ack(ctx, f.ID, chat.SendMessageAck{Error: "Invalid message payload"})
			return
		}
		c.ack(ctx, f.ID, c.sessions.SendMessage(ctx, c.session, req))

	case TypeRoomJoin:
		var req chat.JoinRoomRequest
		if err := decodePayload(f, &req); err != nil {
			c.ack(ctx, f.ID, chat.JoinRoomAck{Error: "Invalid join payload"})
			return
		}
		c.ack(ctx, f.ID, c.sessions.JoinRoom(ctx, c.session, req))

	case TypeMessageStatus:
		var req chat.StatusUpdateRequest
		if c.decodeOrReport(f, &req) {
			c.sessions.UpdateMessageStatus(ctx, c.session, req)
		}

	case TypeRoomLeave:
		var req chat.LeaveRoomRequest
		if c.decodeOrReport(f, &req) {
			c.sessions.LeaveRoom(ctx, c.session, req)
		}

	case TypeTypingStart, TypeTypingStop:
		var req chat.TypingRequest
		if !c.decodeOrReport(f, &req) {
			return
		}
		if f.Type == TypeTypingStart {
			c.sessions.TypingStart(ctx, c.session, req)
		} else {
			c.sessions.TypingStop(ctx, c.session, req)
		}

	case TypePing:
		c.reply(TypePong, f.ID, nil)

	default:
		c.sendError(f.ID, "UNKNOWN_EVENT", "unknown event type: "+f.Type)
	}
}

func (c *Client) decodeOrReport(f *Frame, dst any) bool {
	if err := decodePayload(f, dst); err != nil {
		c.sendError(f.ID, "INVALID_PAYLOAD", "invalid "+f.Type+" payload")
		return false
	}
	return true
}

// ack waits for buffer space instead of dropping the reply, so every
// request gets its acknowledgement unless the connection goes away first.
func (c *Client) ack(ctx context.Context, id string, payload any) {
	data, err := encodeFrame(TypeAck, id, payload)
	if err != nil {
		c.log.Error().Err(err).Str(log.FieldEvent, TypeAck).Msg("ws: encode ack")
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	case <-ctx.Done():
	}
}

func (c *Client) sendError(id, code, message string) {
	c.reply(TypeError, id, ErrorPayload{Code: code, Message: message})
}

func (c *Client) reply(frameType, id string, payload any) {
	data, err := encodeFrame(frameType, id, payload)
	if err != nil {
		c.log.Error().Err(err).Str(log.FieldEvent, frameType).Msg("ws: encode reply")
		return
	}
	if !c.enqueue(data) {
		c.log.Warn().Str(log.FieldEvent, frameType).Msg("ws: send buffer full, dropping reply")
	}
}
