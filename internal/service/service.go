package service

import (
	"context"
	"time"

	"extruder_monitor/internal/logger"
	"extruder_monitor/internal/models"
	"extruder_monitor/internal/repository"
	"extruder_monitor/internal/serialport"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Ingestion owns the serial connection and the protocol session behind it.
type Ingestion interface {
	Connect(ctx context.Context, p ConnectParams) error
	Disconnect(ctx context.Context) error
	SendWakeup() error
	ResetSession(ctx context.Context) error
	ForgetInitBlock(ctx context.Context) error
	Ports() ([]serialport.PortInfo, error)
	Connected() bool
	Resume(ctx context.Context) error
}

// Monitoring exposes the live extruder view.
type Monitoring interface {
	GetState(ctx context.Context) (models.ExtruderState, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ExtruderEvent, error)
}

// Samples exposes persisted data rows.
type Samples interface {
	History(ctx context.Context, f SampleFilter) ([]models.Sample, error)
}

// Stream hands out live envelope subscriptions. The returned func
// unsubscribes and closes the channel.
type Stream interface {
	Subscribe() (<-chan Envelope, func())
}

// Sink receives every envelope the ingestion driver emits, in order.
type Sink interface {
	Consume(ctx context.Context, env Envelope)
}

type Service struct {
	Ingestion
	Monitoring
	EventLog
	Samples
	Stream
	Authorization
}

// Options carries the config values the services need.
type Options struct {
	SigningKey string
	TokenTTL   time.Duration
	Simulate   bool
	SimTick    time.Duration
}

func NewService(repos *repository.Repository, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	hub := NewHub(log)
	monitoring := NewMonitoringService(repos.SampleRepo)
	recorder := NewRecorderService(repos.EventRepo, repos.SampleRepo, log)

	ingestion := NewIngestionService(IngestionDeps{
		Links:     repos.LinkRepo,
		Open:      NewOpener(opts.Simulate, opts.SimTick),
		ListPorts: serialport.ListPorts,
		Sinks:     []Sink{monitoring, recorder, hub},
		Log:       log,
	})

	return &Service{
		Ingestion:     ingestion,
		Monitoring:    monitoring,
		EventLog:      NewEventLogService(repos.EventRepo),
		Samples:       NewSampleService(repos.SampleRepo),
		Stream:        hub,
		Authorization: NewAuthService(repos.Auth, opts.SigningKey, opts.TokenTTL),
	}
}
