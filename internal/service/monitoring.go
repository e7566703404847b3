package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"extruder_monitor/internal/models"
	"extruder_monitor/internal/repository"
	"extruder_monitor/internal/telemetry"
)

const (
	historySize = 500
	warningSize = 100
)

// MonitoringService keeps the live extruder view up to date from the
// envelope stream.
type MonitoringService struct {
	mu    sync.RWMutex
	state models.ExtruderState
	// boot lines seen since the last flushed init block
	initLines []string
	flushed   bool

	samples repository.SampleRepo
}

func NewMonitoringService(samples repository.SampleRepo) *MonitoringService {
	return &MonitoringService{
		state:   models.ExtruderState{Phase: telemetry.PhaseInit.String()},
		samples: samples,
	}
}

func (s *MonitoringService) Consume(_ context.Context, env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	switch env.Type {
	case TypeConnection:
		if info, ok := env.Data.(ConnectionInfo); ok {
			st.Connected = info.Connected
			st.Port = info.Port
			st.BaudRate = info.BaudRate
		}
	case TypeInitLine:
		if line, ok := env.Data.(string); ok {
			if s.flushed {
				s.initLines, s.flushed = nil, false
			}
			s.initLines = append(s.initLines, line)
			st.InitBlock = strings.Join(s.initLines, "\n")
		}
	case TypeInitBlock:
		if text, ok := env.Data.(string); ok {
			st.InitBlock = text
			s.flushed = true
		}
	case TypeInitBlockCleared:
		st.InitBlock = ""
		s.initLines, s.flushed = nil, false
	case TypeHeaderDetected:
		if h, ok := env.Data.(HeaderInfo); ok {
			st.Header = h.Line
		}
	case TypeDataRow:
		if row, ok := env.Data.(telemetry.DataRow); ok {
			st.CurrentData = &row
			st.History = appendCapped(st.History, row, historySize)
		}
	case TypeParseWarning:
		if w, ok := env.Data.(WarningInfo); ok {
			st.ParseWarnings = appendCapped(st.ParseWarnings, w.Message, warningSize)
		}
	}

	if env.Phase != "" {
		st.Phase = env.Phase
	}
	if !env.OccurredAt.IsZero() {
		st.UpdatedAt = env.OccurredAt.UTC()
	}
}

// GetState returns a copy of the live view. Before the first row of this
// process arrives, CurrentData falls back to the newest persisted sample.
func (s *MonitoringService) GetState(ctx context.Context) (models.ExtruderState, error) {
	s.mu.RLock()
	st := s.state
	st.History = append([]telemetry.DataRow(nil), s.state.History...)
	st.ParseWarnings = append([]string(nil), s.state.ParseWarnings...)
	if s.state.CurrentData != nil {
		row := *s.state.CurrentData
		st.CurrentData = &row
	}
	s.mu.RUnlock()

	if st.CurrentData == nil && s.samples != nil {
		latest, err := s.samples.Latest(ctx)
		if err != nil {
			return models.ExtruderState{}, err
		}
		if latest != nil {
			row := latest.Row
			st.CurrentData = &row
		}
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	return st, nil
}

// appendCapped appends v and keeps only the newest limit elements.
func appendCapped[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if over := len(s) - limit; over > 0 {
		s = append(s[:0:0], s[over:]...)
	}
	return s
}
