package service

import (
	"context"
	"fmt"

	"extruder_monitor/internal/logger"
	"extruder_monitor/internal/models"
	"extruder_monitor/internal/repository"
	"extruder_monitor/internal/telemetry"
)

// RecorderService persists the envelope stream: decoded rows become samples,
// lifecycle and protocol envelopes become event log entries. Raw serial-data
// echoes and init lines are not stored.
type RecorderService struct {
	events  repository.EventRepo
	samples repository.SampleRepo
	log     *logger.Logger
}

func NewRecorderService(events repository.EventRepo, samples repository.SampleRepo, log *logger.Logger) *RecorderService {
	return &RecorderService{events: events, samples: samples, log: log}
}

func (s *RecorderService) Consume(ctx context.Context, env Envelope) {
	if env.Type == TypeDataRow {
		row, ok := env.Data.(telemetry.DataRow)
		if !ok {
			return
		}
		if _, err := s.samples.Append(ctx, models.Sample{ReceivedAt: env.OccurredAt, Row: row}); err != nil {
			s.warn("sample_append_failed", err)
		}
		return
	}

	ev, ok := eventFor(env)
	if !ok {
		return
	}
	if err := s.events.Append(ctx, ev); err != nil {
		s.warn("event_append_failed", err, "type", ev.Type)
	}
}

func (s *RecorderService) warn(key string, err error, kv ...any) {
	if s.log != nil {
		s.log.Warnw(key, append([]any{"err", err}, kv...)...)
	}
}

// eventFor maps an envelope to its event log entry.
func eventFor(env Envelope) (models.ExtruderEvent, bool) {
	ev := models.ExtruderEvent{OccurredAt: env.OccurredAt}

	switch env.Type {
	case TypeConnection:
		info, _ := env.Data.(ConnectionInfo)
		meta := map[string]any{"port": info.Port, "baud_rate": info.BaudRate}
		if info.OperatorID > 0 {
			meta["operator_id"] = info.OperatorID
		}
		ev.Metadata = meta
		if info.Connected {
			ev.Type = models.EventConnect
			ev.Description = fmt.Sprintf("Connected to %s at %d baud", info.Port, info.BaudRate)
		} else {
			ev.Type = models.EventDisconnect
			ev.Description = "Disconnected from " + info.Port
		}
	case TypeHeaderDetected:
		h, _ := env.Data.(HeaderInfo)
		ev.Type = models.EventHeader
		ev.Description = "Header detected"
		if h.Changed {
			ev.Description = "Header detected with a different column layout"
		}
		ev.Metadata = map[string]any{"header": h.Line, "changed": h.Changed}
	case TypeInitBlock:
		text, _ := env.Data.(string)
		ev.Type = models.EventInitBlock
		ev.Description = "Init block received"
		ev.Metadata = map[string]any{"text": text}
	case TypeParseWarning:
		w, _ := env.Data.(WarningInfo)
		ev.Type = models.EventParseWarning
		ev.Description = w.Message
		if w.Kind != "" {
			ev.Metadata = map[string]any{"kind": w.Kind, "field": w.Field, "position": w.Position, "raw": w.Raw}
		}
	case TypeSerialError:
		msg, _ := env.Data.(string)
		ev.Type = models.EventSerialError
		ev.Description = msg
	case TypeSessionReset:
		ev.Type = models.EventReset
		ev.Description = "Session reset"
		ev.Metadata = actorMetadata(env)
	case TypeInitBlockCleared:
		ev.Type = models.EventReset
		ev.Description = "Init block cleared"
		ev.Metadata = actorMetadata(env)
	default:
		return models.ExtruderEvent{}, false
	}
	return ev, true
}

func actorMetadata(env Envelope) any {
	if a, ok := env.Data.(ActorInfo); ok && a.OperatorID > 0 {
		return map[string]any{"operator_id": a.OperatorID}
	}
	return nil
}
