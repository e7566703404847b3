package models

import "time"

// LinkState is the persisted snapshot of the serial link.
type LinkState struct {
	ID        int       `json:"id"`
	Port      string    `json:"port"`
	BaudRate  int       `json:"baud_rate"`
	Phase     string    `json:"phase"` // init | header_detected | data_streaming
	Header    string    `json:"header,omitempty"`
	Connected bool      `json:"connected"`
	UpdatedAt time.Time `json:"updated_at"`
}
