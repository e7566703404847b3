package telemetry

// EventKind names an event on the wire.
type EventKind string

const (
	EventInitLine       EventKind = "init-line"
	EventInitBlockReady EventKind = "init-block"
	EventHeaderDetected EventKind = "header-detected"
	EventRow            EventKind = "data-row"
	EventParseWarning   EventKind = "parse-warning"
)

// Event is produced by Session.HandleLine. The concrete types are
// InitLine, InitBlockReady, HeaderDetected, RowDecoded and ParseWarning.
type Event interface {
	Kind() EventKind
	isEvent()
}

// InitLine is a pre-header line that was added to the init block.
type InitLine struct {
	Line string
}

// InitBlockReady carries the buffered boot text, flushed when the header arrives.
type InitBlockReady struct {
	Text string
}

// HeaderDetected carries the raw header line. Changed is set when a header
// was seen before in this session and its column layout differs.
type HeaderDetected struct {
	Line    string
	Changed bool
}

// RowDecoded carries a successfully decoded data row.
type RowDecoded struct {
	Row DataRow
}

// ParseWarning reports a line that could not be decoded. Err is the
// structured *DecodeError.
type ParseWarning struct {
	Message string
	Err     *DecodeError
}

func (InitLine) Kind() EventKind       { return EventInitLine }
func (InitBlockReady) Kind() EventKind { return EventInitBlockReady }
func (HeaderDetected) Kind() EventKind { return EventHeaderDetected }
func (RowDecoded) Kind() EventKind     { return EventRow }
func (ParseWarning) Kind() EventKind   { return EventParseWarning }

func (InitLine) isEvent()       {}
func (InitBlockReady) isEvent() {}
func (HeaderDetected) isEvent() {}
func (RowDecoded) isEvent()     {}
func (ParseWarning) isEvent()   {}
