package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StatusCode enumerates the device states the firmware reports in the Status column.
type StatusCode int

const (
	StatusUnknown StatusCode = iota
	StatusIdle
	StatusHoming
	StatusHeating
	StatusPrepared
	StatusRunning
	StatusError
)

var statusNames = map[StatusCode]string{
	StatusIdle:     "IDLE",
	StatusHoming:   "HOMING",
	StatusHeating:  "HEATING",
	StatusPrepared: "PREPARED",
	StatusRunning:  "RUNNING",
	StatusError:    "ERROR",
}

var statusByName = map[string]StatusCode{
	"IDLE":     StatusIdle,
	"HOMING":   StatusHoming,
	"HEATING":  StatusHeating,
	"PREPARED": StatusPrepared,
	"RUNNING":  StatusRunning,
	"ERROR":    StatusError,
}

// SystemStatus is either one of the known codes or Unknown carrying the
// token exactly as received.
type SystemStatus struct {
	code StatusCode
	raw  string
}

// Known status values.
var (
	Idle     = SystemStatus{code: StatusIdle}
	Homing   = SystemStatus{code: StatusHoming}
	Heating  = SystemStatus{code: StatusHeating}
	Prepared = SystemStatus{code: StatusPrepared}
	Running  = SystemStatus{code: StatusRunning}
	Error    = SystemStatus{code: StatusError}
)

// Unknown wraps an unrecognized status token.
func Unknown(text string) SystemStatus {
	return SystemStatus{code: StatusUnknown, raw: text}
}

// ParseStatus never fails: matching is case-insensitive and ignores
// surrounding whitespace, anything else becomes Unknown(token).
func ParseStatus(token string) SystemStatus {
	if code, ok := statusByName[strings.ToUpper(strings.TrimSpace(token))]; ok {
		return SystemStatus{code: code}
	}
	return Unknown(token)
}

func (s SystemStatus) Code() StatusCode { return s.code }

// IsKnown reports whether s is one of the named states.
func (s SystemStatus) IsKnown() bool { return s.code != StatusUnknown }

// UnknownText returns the raw token of an Unknown status and "" otherwise.
func (s SystemStatus) UnknownText() string {
	if s.IsKnown() {
		return ""
	}
	return s.raw
}

// Token returns the text the device would print for s.
func (s SystemStatus) Token() string {
	if name, ok := statusNames[s.code]; ok {
		return name
	}
	return s.raw
}

func (s SystemStatus) String() string {
	if name, ok := statusNames[s.code]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%s)", s.raw)
}

// MarshalJSON encodes known states as their name and unknown ones as
// {"Unknown":"<token>"}.
func (s SystemStatus) MarshalJSON() ([]byte, error) {
	if name, ok := statusNames[s.code]; ok {
		return json.Marshal(name)
	}
	return json.Marshal(map[string]string{"Unknown": s.raw})
}

func (s *SystemStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		code, ok := statusByName[name]
		if !ok {
			return fmt.Errorf("unknown status name %q", name)
		}
		*s = SystemStatus{code: code}
		return nil
	}
	var unknown struct {
		Unknown *string `json:"Unknown"`
	}
	if err := json.Unmarshal(data, &unknown); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	if unknown.Unknown == nil {
		return fmt.Errorf("decode status: missing Unknown payload in %s", data)
	}
	*s = Unknown(*unknown.Unknown)
	return nil
}
