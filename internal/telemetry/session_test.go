package telemetry

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind()
	}
	return out
}

func TestSession_BootHeaderData(t *testing.T) {
	s := NewSession()
	require.Equal(t, PhaseInit, s.Phase())

	ev := s.HandleLine("bootLine1")
	assert.Equal(t, []Event{InitLine{Line: "bootLine1"}}, ev)

	ev = s.HandleLine("bootLine2")
	assert.Equal(t, []Event{InitLine{Line: "bootLine2"}}, ev)
	assert.Equal(t, 2, s.PendingInitLines())

	header := HeaderLine()
	ev = s.HandleLine(header)
	assert.Equal(t, []Event{
		InitBlockReady{Text: "bootLine1\nbootLine2"},
		HeaderDetected{Line: header},
	}, ev)
	assert.Equal(t, PhaseHeaderDetected, s.Phase())
	assert.Equal(t, 0, s.PendingInitLines())

	ev = s.HandleLine(sampleLine)
	require.Len(t, ev, 1)
	row, ok := ev[0].(RowDecoded)
	require.True(t, ok)
	assert.Equal(t, Idle, row.Row.Status)
	assert.Equal(t, PhaseDataStreaming, s.Phase())
}

func TestSession_HeaderWithoutBootText(t *testing.T) {
	s := NewSession()
	ev := s.HandleLine(HeaderLine())
	assert.Equal(t, []EventKind{EventHeaderDetected}, kinds(ev))
}

func TestSession_BadRowKeepsHeaderDetected(t *testing.T) {
	s := NewSession()
	s.HandleLine(HeaderLine())

	ev := s.HandleLine("garbage")
	require.Len(t, ev, 1)
	warn, ok := ev[0].(ParseWarning)
	require.True(t, ok)
	require.NotNil(t, warn.Err)
	assert.Equal(t, ErrorFieldCount, warn.Err.Kind)
	assert.Contains(t, warn.Message, "failed to parse data row")
	assert.Equal(t, PhaseHeaderDetected, s.Phase())

	ev = s.HandleLine("")
	assert.Equal(t, []EventKind{EventParseWarning}, kinds(ev))
	assert.Equal(t, PhaseHeaderDetected, s.Phase())

	ev = s.HandleLine(sampleLine)
	assert.Equal(t, []EventKind{EventRow}, kinds(ev))
	assert.Equal(t, PhaseDataStreaming, s.Phase())
}

func TestSession_StreamingWarningKeepsPhase(t *testing.T) {
	s := NewSession()
	s.HandleLine(HeaderLine())
	s.HandleLine(sampleLine)

	ev := s.HandleLine("1\t2\t3")
	assert.Equal(t, []EventKind{EventParseWarning}, kinds(ev))
	assert.Equal(t, PhaseDataStreaming, s.Phase())

	ev = s.HandleLine(sampleLine)
	assert.Equal(t, []EventKind{EventRow}, kinds(ev))
}

func TestSession_HeaderReannouncedWhileStreaming(t *testing.T) {
	s := NewSession()
	header := HeaderLine()
	s.HandleLine(header)
	s.HandleLine(sampleLine)

	ev := s.HandleLine(header)
	assert.Equal(t, []Event{HeaderDetected{Line: header}}, ev)
	assert.Equal(t, PhaseDataStreaming, s.Phase())
}

func TestSession_HeaderLayoutChangeFlagged(t *testing.T) {
	s := NewSession()
	s.HandleLine("Time\tSetT1\tTemp1\tdc1")
	s.HandleLine(sampleLine)

	ev := s.HandleLine("Time\tTemp1\tSetT1\tdc1")
	require.Len(t, ev, 1)
	hd := ev[0].(HeaderDetected)
	assert.True(t, hd.Changed)
	assert.Equal(t, "Time\tTemp1\tSetT1\tdc1", s.Header())
}

func TestSession_HeaderComparedAcrossReset(t *testing.T) {
	cases := []struct {
		name        string
		second      string
		wantChanged bool
	}{
		{"same layout", HeaderLine(), false},
		{"same layout different spacing", strings.ReplaceAll(HeaderLine(), "\t", "  "), false},
		{"new layout", "Time\tTemp1\tSetT1\tdc1", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession()
			first := s.HandleLine(HeaderLine())
			require.Len(t, first, 1)
			assert.False(t, first[0].(HeaderDetected).Changed)
			s.HandleLine(sampleLine)

			// reconnect
			s.Reset()
			s.HandleLine("boot")
			ev := s.HandleLine(tc.second)
			require.Equal(t, []EventKind{EventInitBlockReady, EventHeaderDetected}, kinds(ev))
			assert.Equal(t, tc.wantChanged, ev[1].(HeaderDetected).Changed)
			assert.Equal(t, PhaseHeaderDetected, s.Phase())
		})
	}
}

func TestSession_InitLinesNeverDecoded(t *testing.T) {
	s := NewSession()
	ev := s.HandleLine(sampleLine)
	assert.Equal(t, []Event{InitLine{Line: sampleLine}}, ev)
	assert.Equal(t, PhaseInit, s.Phase())

	ev = s.HandleLine("")
	assert.Equal(t, []Event{InitLine{Line: ""}}, ev)
}

func TestSession_ResetKeepsBufferedBootText(t *testing.T) {
	s := NewSession()
	s.HandleLine(HeaderLine())
	s.HandleLine(sampleLine)

	s.Reset()
	assert.Equal(t, PhaseInit, s.Phase())

	s.HandleLine("boot A")
	s.Reset()
	s.HandleLine("boot B")

	ev := s.HandleLine(HeaderLine())
	assert.Equal(t, []Event{
		InitBlockReady{Text: "boot A\nboot B"},
		HeaderDetected{Line: HeaderLine()},
	}, ev)
	assert.Equal(t, PhaseHeaderDetected, s.Phase())
}

func TestSession_ForgetInitBlock(t *testing.T) {
	s := NewSession()
	s.HandleLine("boot A")
	s.ForgetInitBlock()

	ev := s.HandleLine(HeaderLine())
	assert.Equal(t, []EventKind{EventHeaderDetected}, kinds(ev))
}

func TestSession_ConcurrentResetAndHandleLine(t *testing.T) {
	s := NewSession()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.HandleLine(HeaderLine())
			s.HandleLine(sampleLine)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Reset()
		}
	}()
	wg.Wait()

	assert.Contains(t, []Phase{PhaseInit, PhaseHeaderDetected, PhaseDataStreaming}, s.Phase())
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "init", PhaseInit.String())
	assert.Equal(t, "header_detected", PhaseHeaderDetected.String())
	assert.Equal(t, "data_streaming", PhaseDataStreaming.String())
}
