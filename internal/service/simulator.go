package service

import (
	"bytes"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"extruder_monitor/internal/serialport"
	"extruder_monitor/internal/telemetry"
)

// SimulatorPort is the port name that selects the built-in simulator.
const SimulatorPort = "SIM"

// ----------- Simulation constants -----------
const (
	AmbientC       = 25.0 // start temperature of every zone, °C
	HeatGain       = 0.2  // share of the set point gap closed per tick
	PreparedBandC  = 2.0  // °C band around set point counted as "at temperature"
	IdleTicks      = 3    // rows reported as IDLE before heaters switch on
	PreparedTicks  = 5    // rows reported as PREPARED before the screw starts
	TargetRPM      = 30.0 // screw speed when RUNNING
	RPMRampPerTick = 2.5
	FilamentDiaMM  = 1.75
	SpoolDiaMM     = 200.0
	MemFreeBytes   = 21504
)

var (
	setPoints  = [4]float64{190, 200, 205, 210}
	bootBanner = []string{
		"Filament extruder controller (simulated)",
		"FW 2.4.1 build 1187",
		"Heater zones: 4",
		"Init complete",
	}
)

// Simulator is a fake extruder connection: it prints a boot banner and the
// header, then one data row per tick. A newline written to it makes it
// re-announce the header like the real controller does.
type Simulator struct {
	tick   time.Duration
	ticker *time.Ticker
	wake   chan struct{}
	closed chan struct{}
	once   sync.Once

	mu    sync.Mutex
	queue []string
	model simModel
}

var _ serialport.Conn = (*Simulator)(nil)

func NewSimulator(tick time.Duration) *Simulator {
	if tick <= 0 {
		tick = time.Second
	}
	queue := append([]string(nil), bootBanner...)
	return &Simulator{
		tick:   tick,
		ticker: time.NewTicker(tick),
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
		queue:  append(queue, telemetry.HeaderLine()),
		model:  newSimModel(),
	}
}

// NewOpener returns the Opener used by the ingestion service: the simulator
// when simulate is set or the port is SimulatorPort, a real device otherwise.
func NewOpener(simulate bool, tick time.Duration) Opener {
	return func(name string, baudRate int) (serialport.Conn, error) {
		if simulate || strings.EqualFold(name, SimulatorPort) {
			return NewSimulator(tick), nil
		}
		return serialport.Open(name, baudRate)
	}
}

func (s *Simulator) ReadLine() (string, error) {
	for {
		select {
		case <-s.closed:
			return "", io.EOF
		default:
		}

		s.mu.Lock()
		if len(s.queue) > 0 {
			line := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return line, nil
		}
		s.mu.Unlock()

		select {
		case <-s.closed:
			return "", io.EOF
		case <-s.wake:
		case <-s.ticker.C:
			s.mu.Lock()
			row := s.model.step(s.tick)
			s.mu.Unlock()
			return strings.Join(row.Tokens(), "\t"), nil
		}
	}
}

func (s *Simulator) Write(b []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, serialport.ErrNotOpen
	default:
	}
	if bytes.ContainsRune(b, '\n') {
		s.mu.Lock()
		s.queue = append(s.queue, telemetry.HeaderLine())
		s.mu.Unlock()
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return len(b), nil
}

func (s *Simulator) Close() error {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.closed)
	})
	return nil
}

// simModel is the extruder physics behind the simulator: four heater zones
// closing on their set points, then a screw ramping up and a winder
// accumulating filament.
type simModel struct {
	ticks    int
	elapsed  float64
	temps    [4]float64
	prepared int
	rpm      float64
	length   float64
}

func newSimModel() simModel {
	return simModel{temps: [4]float64{AmbientC, AmbientC, AmbientC, AmbientC}}
}

func (m *simModel) step(dt time.Duration) telemetry.DataRow {
	m.ticks++
	m.elapsed += dt.Seconds()

	heating := m.ticks > IdleTicks
	var duty [4]float64
	atTemp := true
	for i, set := range setPoints {
		if heating {
			gap := set - m.temps[i]
			duty[i] = clamp(gap*2, 0, 100)
			m.temps[i] += gap * HeatGain
		}
		if math.Abs(set-m.temps[i]) > PreparedBandC {
			atTemp = false
		}
	}

	var status telemetry.SystemStatus
	switch {
	case !heating:
		status = telemetry.Idle
	case !atTemp:
		status = telemetry.Heating
	case m.prepared < PreparedTicks:
		m.prepared++
		status = telemetry.Prepared
	default:
		status = telemetry.Running
		m.rpm = math.Min(m.rpm+RPMRampPerTick, TargetRPM)
	}

	winder := m.rpm * 0.1 // m/min
	m.length += winder * dt.Seconds() / 60
	area := math.Pi * (FilamentDiaMM / 2) * (FilamentDiaMM / 2)

	var setRPM float64
	if status == telemetry.Running {
		setRPM = TargetRPM
	}

	return telemetry.DataRow{
		Time:  round1(m.elapsed),
		SetT1: setPoints[0], Temp1: round1(m.temps[0]), DC1: round1(duty[0]),
		SetT2: setPoints[1], Temp2: round1(m.temps[1]), DC2: round1(duty[1]),
		SetT3: setPoints[2], Temp3: round1(m.temps[2]), DC3: round1(duty[2]),
		SetT4: setPoints[3], Temp4: round1(m.temps[3]), DC4: round1(duty[3]),
		IntT4:   round1(AmbientC + 10),
		ExtCur:  round1(m.rpm * 0.05),
		ExtPWM:  int32(m.rpm * 8),
		ExtTmp:  round1(AmbientC + m.rpm/2),
		SetRPM:  setRPM,
		RPM:     round1(m.rpm),
		FT:      round1(FilamentDiaMM*100+math.Sin(m.elapsed)) / 100,
		FTAvg:   FilamentDiaMM,
		Puller:  int32(m.rpm * 10),
		MemFree: MemFreeBytes,
		Status:  status,
		WndrSpd: round1(winder),
		PosSpd:  round1(winder / 2),
		Length:  round1(m.length),
		Volume:  round1(m.length * area),
		SpDia:   SpoolDiaMM,
		SpFill:  round1(math.Min(100, m.length/3)),
		FsIntT:  31,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
