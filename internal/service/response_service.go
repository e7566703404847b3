package service

import "time"

type ConnectParams struct {
	Port     string // device path, or "SIM" for the built-in simulator
	BaudRate int    // 0 means DefaultBaudRate
}

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "CONNECT", "DISCONNECT", "HEADER", "INIT_BLOCK", "PARSE_WARNING", "SERIAL_ERROR", "RESET"
}

type SampleFilter struct {
	From  time.Time
	To    time.Time
	Limit int // 0 means DefaultSampleLimit
}
