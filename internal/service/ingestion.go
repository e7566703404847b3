package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"extruder_monitor/internal/logger"
	"extruder_monitor/internal/models"
	"extruder_monitor/internal/repository"
	"extruder_monitor/internal/serialport"
	"extruder_monitor/internal/telemetry"
)

const DefaultBaudRate = 115200

var (
	ErrAlreadyConnected = errors.New("serial port already connected")
	ErrNotConnected     = errors.New("serial port not connected")
	ErrPortRequired     = errors.New("port name is required")
	ErrInvalidBaudRate  = errors.New("baud rate must be positive")
)

// Opener opens a device connection by name.
type Opener func(name string, baudRate int) (serialport.Conn, error)

type IngestionDeps struct {
	Links     repository.LinkRepo
	Open      Opener
	ListPorts func() ([]serialport.PortInfo, error)
	Sinks     []Sink
	Log       *logger.Logger
}

// IngestionService drives one serial connection at a time: a reader goroutine
// feeds every line through the session and emits the resulting envelopes to
// the sinks in arrival order.
type IngestionService struct {
	mu      sync.Mutex
	conn    serialport.Conn
	closing bool
	port    string
	baud    int
	cancel  context.CancelFunc
	done    chan struct{}
	session *telemetry.Session

	links     repository.LinkRepo
	open      Opener
	listPorts func() ([]serialport.PortInfo, error)
	sinks     []Sink
	log       *logger.Logger
	now       func() time.Time
}

func NewIngestionService(d IngestionDeps) *IngestionService {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	return &IngestionService{
		session:   telemetry.NewSession(),
		links:     d.Links,
		open:      d.Open,
		listPorts: d.ListPorts,
		sinks:     d.Sinks,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Connect opens the port and starts reading. The session keeps its phase
// from the last Reset, which is PhaseInit for a fresh service.
func (s *IngestionService) Connect(ctx context.Context, p ConnectParams) error {
	name := strings.TrimSpace(p.Port)
	if name == "" {
		return ErrPortRequired
	}
	baud := p.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	if baud < 0 {
		return ErrInvalidBaudRate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return ErrAlreadyConnected
	}
	conn, err := s.open(name, baud)
	if err != nil {
		return fmt.Errorf("connect %s: %w", name, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.conn, s.port, s.baud = conn, name, baud
	s.cancel, s.done = cancel, make(chan struct{})

	operatorID, _ := OperatorFrom(ctx)
	s.log.Infow("serial_connected", "port", name, "baud_rate", baud, "operator_id", operatorID)
	s.emit(ctx, s.connectionEnvelope(true, operatorID))
	s.saveLink(ctx, true)

	go s.readLoop(runCtx, conn, s.done)
	return nil
}

// Disconnect closes the port, waits for the reader to exit and resets the
// session. Buffered boot text survives.
func (s *IngestionService) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn == nil || s.closing {
		s.mu.Unlock()
		return ErrNotConnected
	}
	s.closing = true
	conn, cancel, done := s.conn, s.cancel, s.done
	s.mu.Unlock()

	cancel()
	if err := conn.Close(); err != nil {
		s.log.Warnw("serial_close_failed", "err", err)
	}
	<-done

	s.teardown(ctx, "disconnected")
	return nil
}

// teardown runs once per connection after the reader has stopped. Until it
// clears s.conn, Connect keeps failing with ErrAlreadyConnected.
func (s *IngestionService) teardown(ctx context.Context, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Reset()
	s.conn, s.cancel, s.done, s.closing = nil, nil, nil, false
	operatorID, _ := OperatorFrom(ctx)
	s.log.Infow("serial_disconnected", "port", s.port, "reason", reason, "operator_id", operatorID)
	s.emit(ctx, s.connectionEnvelope(false, operatorID))
	s.saveLink(ctx, false)
}

func (s *IngestionService) SendWakeup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.closing {
		return ErrNotConnected
	}
	return serialport.SendWakeup(s.conn)
}

// ResetSession forces the session back to PhaseInit without touching the port.
func (s *IngestionService) ResetSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Reset()
	s.emit(ctx, s.controlEnvelope(ctx, TypeSessionReset))
	s.saveLink(ctx, s.conn != nil)
	return nil
}

func (s *IngestionService) ForgetInitBlock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.ForgetInitBlock()
	s.emit(ctx, s.controlEnvelope(ctx, TypeInitBlockCleared))
	return nil
}

// Ports lists host devices followed by the simulator.
func (s *IngestionService) Ports() ([]serialport.PortInfo, error) {
	var ports []serialport.PortInfo
	if s.listPorts != nil {
		var err error
		if ports, err = s.listPorts(); err != nil {
			return nil, err
		}
	}
	return append(ports, serialport.PortInfo{Name: SimulatorPort, Type: serialport.TypeUnknown}), nil
}

func (s *IngestionService) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && !s.closing
}

// Resume reconnects to the port saved by the previous run if it was left
// connected. It is a no-op otherwise.
func (s *IngestionService) Resume(ctx context.Context) error {
	if s.links == nil {
		return nil
	}
	link, err := s.links.Load(ctx)
	if err != nil {
		return fmt.Errorf("load serial link: %w", err)
	}
	if !link.Connected || link.Port == "" {
		return nil
	}
	return s.Connect(ctx, ConnectParams{Port: link.Port, BaudRate: link.BaudRate})
}

func (s *IngestionService) readLoop(ctx context.Context, conn serialport.Conn, done chan struct{}) {
	defer close(done)
	for {
		if ctx.Err() != nil {
			return
		}
		line, err := conn.ReadLine()
		switch {
		case err == nil:
		case errors.Is(err, serialport.ErrTimeout):
			continue
		case ctx.Err() != nil:
			// closed by Disconnect
			return
		case errors.Is(err, io.EOF):
			s.readerStopped(ctx, conn, "eof")
			return
		default:
			s.log.Errorw("serial_read_failed", "err", err)
			s.emitLocked(ctx, Envelope{Type: TypeSerialError, Data: err.Error(), OccurredAt: s.now()})
			s.readerStopped(ctx, conn, "read error")
			return
		}

		s.handleLine(ctx, line)
	}
}

// handleLine holds s.mu across the session step and the emits so a
// concurrent reset lands either before or after the whole line.
func (s *IngestionService) handleLine(ctx context.Context, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.session.HandleLine(line)
	phase := s.session.Phase()
	at := s.now()

	s.emit(ctx, Envelope{Type: TypeSerialData, Data: line, Phase: phase.String(), OccurredAt: at})
	for _, ev := range events {
		switch e := ev.(type) {
		case telemetry.HeaderDetected:
			if e.Changed {
				s.log.Warnw("header_layout_changed", "header", e.Line)
			}
			s.saveLink(ctx, true)
		case telemetry.ParseWarning:
			s.log.Debugw("parse_warning", "msg", e.Message)
		}
		s.emit(ctx, envelopeFor(ev, phase, at))
	}
}

// readerStopped handles a connection that ended on its own. If Disconnect
// already claimed the connection there is nothing to do.
func (s *IngestionService) readerStopped(ctx context.Context, conn serialport.Conn, reason string) {
	s.mu.Lock()
	if s.conn != conn || s.closing {
		s.mu.Unlock()
		return
	}
	s.closing = true
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	_ = conn.Close()
	// the run context is gone, the final envelopes still need to be stored
	s.teardown(context.WithoutCancel(ctx), reason)
}

func (s *IngestionService) connectionEnvelope(connected bool, operatorID int) Envelope {
	return Envelope{
		Type:       TypeConnection,
		Data:       ConnectionInfo{Connected: connected, Port: s.port, BaudRate: s.baud, OperatorID: operatorID},
		Phase:      s.session.Phase().String(),
		OccurredAt: s.now(),
	}
}

// controlEnvelope attributes a session control action to the operator in ctx.
func (s *IngestionService) controlEnvelope(ctx context.Context, typ string) Envelope {
	env := Envelope{Type: typ, Phase: s.session.Phase().String(), OccurredAt: s.now()}
	if id, ok := OperatorFrom(ctx); ok {
		env.Data = ActorInfo{OperatorID: id}
	}
	return env
}

func (s *IngestionService) emitLocked(ctx context.Context, env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit(ctx, env)
}

// emit must be called with s.mu held so envelopes reach the sinks in order.
func (s *IngestionService) emit(ctx context.Context, env Envelope) {
	for _, sink := range s.sinks {
		sink.Consume(ctx, env)
	}
}

// saveLink must be called with s.mu held.
func (s *IngestionService) saveLink(ctx context.Context, connected bool) {
	if s.links == nil {
		return
	}
	err := s.links.Save(ctx, models.LinkState{
		Port:      s.port,
		BaudRate:  s.baud,
		Phase:     s.session.Phase().String(),
		Header:    s.session.Header(),
		Connected: connected,
		UpdatedAt: s.now(),
	})
	if err != nil {
		s.log.Warnw("serial_link_save_failed", "err", err)
	}
}
