package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"extruder_monitor/internal/models"
	"extruder_monitor/internal/serialport"
	"extruder_monitor/internal/telemetry"
)

// ---- Test doubles ----

// fakeEventRepo is a minimal stub that satisfies repository.EventRepo.
type fakeEventRepo struct {
	mu sync.Mutex

	gotFrom time.Time
	gotTo   time.Time
	gotType string
	calls   int

	events    []models.ExtruderEvent
	err       error
	appended  []models.ExtruderEvent
	appendErr error
}

func (f *fakeEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.ExtruderEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotFrom, f.gotTo, f.gotType = from, to, typ
	return f.events, f.err
}

func (f *fakeEventRepo) Append(ctx context.Context, e models.ExtruderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, e)
	return f.appendErr
}

// fakeSampleRepo satisfies repository.SampleRepo.
type fakeSampleRepo struct {
	mu sync.Mutex

	appended  []models.Sample
	appendErr error

	latest    *models.Sample
	latestErr error

	list     []models.Sample
	listErr  error
	gotFrom  time.Time
	gotTo    time.Time
	gotLimit int
}

func (f *fakeSampleRepo) Append(ctx context.Context, s models.Sample) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	f.appended = append(f.appended, s)
	return int64(len(f.appended)), nil
}

func (f *fakeSampleRepo) List(ctx context.Context, from, to time.Time, limit int) ([]models.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotFrom, f.gotTo, f.gotLimit = from, to, limit
	return f.list, f.listErr
}

func (f *fakeSampleRepo) Latest(ctx context.Context) (*models.Sample, error) {
	return f.latest, f.latestErr
}

// fakeLinkRepo satisfies repository.LinkRepo.
type fakeLinkRepo struct {
	mu      sync.Mutex
	saved   []models.LinkState
	load    models.LinkState
	loadErr error
}

func (f *fakeLinkRepo) Save(ctx context.Context, s models.LinkState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeLinkRepo) Load(ctx context.Context) (models.LinkState, error) {
	return f.load, f.loadErr
}

func (f *fakeLinkRepo) last() models.LinkState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return models.LinkState{}
	}
	return f.saved[len(f.saved)-1]
}

// recordingSink keeps every envelope it sees.
type recordingSink struct {
	mu   sync.Mutex
	envs []Envelope
}

func (r *recordingSink) Consume(_ context.Context, env Envelope) {
	r.mu.Lock()
	r.envs = append(r.envs, env)
	r.mu.Unlock()
}

func (r *recordingSink) snapshot() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.envs...)
}

func (r *recordingSink) types() []string {
	var out []string
	for _, e := range r.snapshot() {
		out = append(out, e.Type)
	}
	return out
}

// waitFor polls until an envelope of type typ was recorded n times.
func (r *recordingSink) waitFor(t *testing.T, typ string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		count := 0
		for _, e := range r.snapshot() {
			if e.Type == typ {
				count++
			}
		}
		if count >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %q envelopes; got %v", n, typ, r.types())
}

// fakeConn is a scripted serialport.Conn. Lines are fed through lines;
// closing lines yields io.EOF, sending on fail yields a read error.
type fakeConn struct {
	lines  chan string
	fail   chan error
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes bytes.Buffer
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		lines:  make(chan string, 64),
		fail:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadLine() (string, error) {
	select {
	case <-c.closed:
		return "", io.ErrClosedPipe
	case err := <-c.fail:
		return "", err
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-time.After(10 * time.Millisecond):
		return "", serialport.ErrTimeout
	}
}

func (c *fakeConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes.Write(b)
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes.String()
}

// rowLine renders a valid tab-separated data line.
func rowLine(t float64, status telemetry.SystemStatus) string {
	row := telemetry.DataRow{Time: t, SetT1: 190, Temp1: 188.4, RPM: 12, Status: status}
	return strings.Join(row.Tokens(), "\t")
}
