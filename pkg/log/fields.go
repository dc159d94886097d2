package log

const (
	// Request
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldLatency  = "latency_ms"
	FieldClientIP = "client_ip"

	// Actor
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Realtime
	FieldConnID    = "conn_id"
	FieldRoomID    = "room_id"
	FieldMessageID = "message_id"
	FieldEvent     = "event"

	FieldService = "service"
)
