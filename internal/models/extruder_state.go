package models

import (
	"time"

	"extruder_monitor/internal/telemetry"
)

// ExtruderState is the live view of the device, rebuilt from the event stream.
type ExtruderState struct {
	Connected     bool                `json:"is_connected"`
	Port          string              `json:"port,omitempty"`
	BaudRate      int                 `json:"baud_rate,omitempty"`
	Phase         string              `json:"phase"`
	InitBlock     string              `json:"init_block"`
	Header        string              `json:"header"`
	CurrentData   *telemetry.DataRow  `json:"current_data"`
	History       []telemetry.DataRow `json:"historical_data"`
	ParseWarnings []string            `json:"parse_warnings"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
