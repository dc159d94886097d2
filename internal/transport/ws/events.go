package ws

import (
	"encoding/json"
)

// Frame types - Client → Server
const (
	TypeMessageSend   = "message:send"
	TypeMessageStatus = "message:status"
	TypeRoomJoin      = "room:join"
	TypeRoomLeave     = "room:leave"
	TypeTypingStart   = "typing:start"
	TypeTypingStop    = "typing:stop"
	TypePing          = "ping"
)

// Frame types - Server → Client. Broadcasts reuse the chat event names.
const (
	TypeAck   = "ack"
	TypePong  = "pong"
	TypeError = "error"
)

// Frame is the envelope for every WebSocket message in either direction.
// ID correlates a request with its ack.
type Frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func encodeFrame(frameType, id string, payload any) ([]byte, error) {
	f := Frame{Type: frameType, ID: id}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		f.Payload = data
	}
	return json.Marshal(f)
}

// decodePayload fills dst from the frame payload. A missing payload leaves
// dst at its zero value.
func decodePayload(f *Frame, dst any) error {
	if len(f.Payload) == 0 || string(f.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(f.Payload, dst)
}
