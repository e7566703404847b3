package service

import (
	"time"

	"extruder_monitor/internal/telemetry"
)

// Envelope types. The telemetry kinds are reused as-is.
const (
	TypeSerialData       = "serial-data"
	TypeSerialError      = "serial-error"
	TypeConnection       = "connection"
	TypeSessionReset     = "session-reset"
	TypeInitBlockCleared = "init-block-cleared"
	TypeState            = "state"

	TypeInitLine       = string(telemetry.EventInitLine)
	TypeInitBlock      = string(telemetry.EventInitBlockReady)
	TypeHeaderDetected = string(telemetry.EventHeaderDetected)
	TypeDataRow        = string(telemetry.EventRow)
	TypeParseWarning   = string(telemetry.EventParseWarning)
)

// Envelope is the unit pushed to sinks and websocket clients.
type Envelope struct {
	Type       string    `json:"type"`
	Data       any       `json:"data,omitempty"`
	Phase      string    `json:"phase,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ConnectionInfo struct {
	Connected  bool   `json:"is_connected"`
	Port       string `json:"port"`
	BaudRate   int    `json:"baud_rate"`
	OperatorID int    `json:"operator_id,omitempty"` // 0 when no operator acted, e.g. EOF or autoconnect
}

// ActorInfo names who triggered a session-reset or init-block-cleared.
type ActorInfo struct {
	OperatorID int `json:"operator_id"`
}

type HeaderInfo struct {
	Line    string `json:"line"`
	Changed bool   `json:"changed"`
}

type WarningInfo struct {
	Message  string `json:"message"`
	Kind     string `json:"kind,omitempty"`
	Field    string `json:"field,omitempty"`
	Position int    `json:"position"`
	Raw      string `json:"raw,omitempty"`
}

// envelopeFor converts a session event. Data is a string for init lines and
// blocks, HeaderInfo, telemetry.DataRow or WarningInfo otherwise.
func envelopeFor(ev telemetry.Event, phase telemetry.Phase, at time.Time) Envelope {
	env := Envelope{Type: string(ev.Kind()), Phase: phase.String(), OccurredAt: at}
	switch e := ev.(type) {
	case telemetry.InitLine:
		env.Data = e.Line
	case telemetry.InitBlockReady:
		env.Data = e.Text
	case telemetry.HeaderDetected:
		env.Data = HeaderInfo{Line: e.Line, Changed: e.Changed}
	case telemetry.RowDecoded:
		env.Data = e.Row
	case telemetry.ParseWarning:
		w := WarningInfo{Message: e.Message}
		if e.Err != nil {
			w.Kind = e.Err.Kind.String()
			w.Field = e.Err.Field
			w.Position = e.Err.Position
			w.Raw = e.Err.Raw
		}
		env.Data = w
	}
	return env
}
