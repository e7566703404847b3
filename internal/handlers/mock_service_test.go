package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"extruder_monitor/internal/models"
	"extruder_monitor/internal/serialport"
	"extruder_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockIngestion struct {
	connectErr    error
	disconnectErr error
	wakeupErr     error
	resetErr      error
	forgetErr     error
	ports         []serialport.PortInfo
	portsErr      error
	connected     bool

	lastConnect     service.ConnectParams
	connectCalls    int
	disconnectCalls int
	wakeupCalls     int
	resetCalls      int
	forgetCalls     int

	// operator found in the context of the latest control call
	lastOperator int
}

func (m *mockIngestion) noteOperator(ctx context.Context) {
	m.lastOperator, _ = service.OperatorFrom(ctx)
}

func (m *mockIngestion) Connect(ctx context.Context, p service.ConnectParams) error {
	m.connectCalls++
	m.lastConnect = p
	m.noteOperator(ctx)
	return m.connectErr
}
func (m *mockIngestion) Disconnect(ctx context.Context) error {
	m.disconnectCalls++
	m.noteOperator(ctx)
	return m.disconnectErr
}
func (m *mockIngestion) SendWakeup() error {
	m.wakeupCalls++
	return m.wakeupErr
}
func (m *mockIngestion) ResetSession(ctx context.Context) error {
	m.resetCalls++
	m.noteOperator(ctx)
	return m.resetErr
}
func (m *mockIngestion) ForgetInitBlock(ctx context.Context) error {
	m.forgetCalls++
	m.noteOperator(ctx)
	return m.forgetErr
}
func (m *mockIngestion) Ports() ([]serialport.PortInfo, error) { return m.ports, m.portsErr }
func (m *mockIngestion) Connected() bool                        { return m.connected }
func (m *mockIngestion) Resume(ctx context.Context) error       { return nil }

type mockMonitoring struct {
	state models.ExtruderState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.ExtruderState, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp     []models.ExtruderEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ExtruderEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockSamples struct {
	resp       []models.Sample
	err        error
	lastFilter service.SampleFilter
}

func (m *mockSamples) History(ctx context.Context, f service.SampleFilter) ([]models.Sample, error) {
	m.lastFilter = f
	return m.resp, m.err
}

// mockStream hands out one channel the test feeds directly.
type mockStream struct {
	ch chan service.Envelope

	mu           sync.Mutex
	subscribed   bool
	unsubscribed bool
}

func newMockStream() *mockStream {
	return &mockStream{ch: make(chan service.Envelope, 8)}
}

func (m *mockStream) Subscribe() (<-chan service.Envelope, func()) {
	m.mu.Lock()
	m.subscribed = true
	m.mu.Unlock()
	return m.ch, func() {
		m.mu.Lock()
		m.unsubscribed = true
		m.mu.Unlock()
	}
}

func (m *mockStream) state() (subscribed, unsubscribed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribed, m.unsubscribed
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
