package telemetry

import (
	"errors"
	"sync"
)

// Phase is the position of a session in Init -> HeaderDetected -> DataStreaming.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseHeaderDetected
	PhaseDataStreaming
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseHeaderDetected:
		return "header_detected"
	case PhaseDataStreaming:
		return "data_streaming"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Session is the per-connection protocol state machine. All methods lock the
// same mutex, so a control surface may call Reset while a reader goroutine
// feeds HandleLine.
type Session struct {
	mu        sync.Mutex
	phase     Phase
	initBlock InitBlock
	header    string
}

func NewSession() *Session {
	return &Session{}
}

// HandleLine consumes one line and returns the events it produced, in order.
// The Init -> HeaderDetected transition yields InitBlockReady (when boot text
// was buffered) followed by HeaderDetected.
func (s *Session) HandleLine(line string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseInit:
		if !IsHeader(line) {
			s.initBlock.Push(line)
			return []Event{InitLine{Line: line}}
		}
		var events []Event
		if text, ok := s.initBlock.DrainIfNonEmpty(); ok {
			events = append(events, InitBlockReady{Text: text})
		}
		s.phase = PhaseHeaderDetected
		return append(events, s.headerSeen(line))

	case PhaseHeaderDetected:
		row, err := DecodeRow(line)
		if err != nil {
			return []Event{parseWarning(err)}
		}
		s.phase = PhaseDataStreaming
		return []Event{RowDecoded{Row: row}}

	default:
		// A header while streaming is informational: the device re-announced
		// its columns without the session being torn down.
		if IsHeader(line) {
			return []Event{s.headerSeen(line)}
		}
		row, err := DecodeRow(line)
		if err != nil {
			return []Event{parseWarning(err)}
		}
		return []Event{RowDecoded{Row: row}}
	}
}

func (s *Session) headerSeen(line string) HeaderDetected {
	changed := s.header != "" && !sameLayout(s.header, line)
	s.header = line
	return HeaderDetected{Line: line, Changed: changed}
}

func parseWarning(err error) ParseWarning {
	var de *DecodeError
	errors.As(err, &de)
	return ParseWarning{Message: "failed to parse data row: " + err.Error(), Err: de}
}

// Reset returns the session to PhaseInit on connection teardown. Buffered
// boot text and the last header are kept for the next connection.
func (s *Session) Reset() {
	s.mu.Lock()
	s.phase = PhaseInit
	s.mu.Unlock()
}

// ForgetInitBlock discards buffered boot text.
func (s *Session) ForgetInitBlock() {
	s.mu.Lock()
	s.initBlock.Forget()
	s.mu.Unlock()
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Header returns the most recent header line, or "" if none was seen.
func (s *Session) Header() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

// PendingInitLines is the number of boot lines buffered and not yet flushed.
func (s *Session) PendingInitLines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initBlock.Len()
}
