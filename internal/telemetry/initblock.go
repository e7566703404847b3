package telemetry

import "strings"

// InitBlock collects the boot chatter a device prints before its header.
type InitBlock struct {
	lines []string
}

func (b *InitBlock) Push(line string) {
	b.lines = append(b.lines, line)
}

// DrainIfNonEmpty joins the buffered lines with "\n" and empties the block.
// It returns false when nothing was buffered.
func (b *InitBlock) DrainIfNonEmpty() (string, bool) {
	if len(b.lines) == 0 {
		return "", false
	}
	text := strings.Join(b.lines, "\n")
	b.lines = b.lines[:0]
	return text, true
}

// Forget discards buffered boot history.
func (b *InitBlock) Forget() {
	b.lines = nil
}

func (b *InitBlock) Len() int { return len(b.lines) }
