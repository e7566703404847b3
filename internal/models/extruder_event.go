package models

import "time"

// Event types recorded in the event log.
const (
	EventConnect      = "CONNECT"
	EventDisconnect   = "DISCONNECT"
	EventHeader       = "HEADER"
	EventInitBlock    = "INIT_BLOCK"
	EventParseWarning = "PARSE_WARNING"
	EventSerialError  = "SERIAL_ERROR"
	EventReset        = "RESET"
)

// ExtruderEvent is a single log entry.
type ExtruderEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // CONNECT | DISCONNECT | HEADER | INIT_BLOCK | PARSE_WARNING | SERIAL_ERROR | RESET
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
