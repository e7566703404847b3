package models

import (
	"time"

	"extruder_monitor/internal/telemetry"
)

// Sample is a decoded data row as stored.
type Sample struct {
	ID         int64             `json:"id"`
	ReceivedAt time.Time         `json:"received_at"`
	Row        telemetry.DataRow `json:"row"`
}
