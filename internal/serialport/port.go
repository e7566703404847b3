// Package serialport is the transport side of the monitor: it enumerates
// serial devices and reads them line by line.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// readTimeout bounds a single blocking read so the reader loop can notice
// cancellation.
const readTimeout = 100 * time.Millisecond

var (
	// ErrTimeout is returned by ReadLine when no complete line arrived within
	// the read timeout. Callers should simply retry.
	ErrTimeout = errors.New("serial read timeout")
	// ErrNotOpen is returned when writing to a closed port.
	ErrNotOpen = errors.New("serial port is not open")
)

// wakeup is the byte sequence that nudges the controller into printing.
var wakeup = []byte("\n")

// LineSource yields one text line per call, in arrival order.
type LineSource interface {
	ReadLine() (string, error)
	io.Closer
}

// Conn is an open device connection: a line source that also accepts writes.
type Conn interface {
	LineSource
	io.Writer
}

// PortType is a coarse classification of a serial device.
type PortType string

const (
	TypeUSB       PortType = "USB"
	TypePCI       PortType = "PCI"
	TypeBluetooth PortType = "Bluetooth"
	TypeUnknown   PortType = "Unknown"
)

// PortInfo describes an available serial device.
type PortInfo struct {
	Name string   `json:"port_name"`
	Type PortType `json:"port_type"`
}

// ListPorts enumerates the serial devices present on the host.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		out = append(out, PortInfo{Name: d.Name, Type: classify(d.Name, d.IsUSB)})
	}
	return out, nil
}

func classify(name string, isUSB bool) PortType {
	if isUSB {
		return TypeUSB
	}
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "rfcomm"), strings.Contains(lower, "bluetooth"):
		return TypeBluetooth
	case strings.HasPrefix(name, "/dev/ttyS"):
		return TypePCI
	default:
		return TypeUnknown
	}
}

// Port is an open serial device.
type Port struct {
	name  string
	port  serial.Port
	lines *lineReader
}

// Open opens name at the given baud rate (8N1).
func Open(name string, baudRate int) (*Port, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", name, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set read timeout on %q: %w", name, err)
	}
	return &Port{
		name:  name,
		port:  p,
		lines: newLineReader(timeoutReader{r: p}),
	}, nil
}

func (p *Port) Name() string { return p.name }

// ReadLine returns the next line without its terminator and trailing
// whitespace. It returns ErrTimeout when the device was silent; any partial
// line is kept for the next call.
func (p *Port) ReadLine() (string, error) {
	return p.lines.ReadLine()
}

func (p *Port) Write(b []byte) (int, error) {
	if p.port == nil {
		return 0, ErrNotOpen
	}
	n, err := p.port.Write(b)
	if err != nil {
		return n, fmt.Errorf("write to %q: %w", p.name, err)
	}
	return n, nil
}

// Close releases the device and unblocks a pending ReadLine.
func (p *Port) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}

// SendWakeup writes a single newline to w.
func SendWakeup(w io.Writer) error {
	if _, err := w.Write(wakeup); err != nil {
		return fmt.Errorf("send wakeup: %w", err)
	}
	return nil
}
