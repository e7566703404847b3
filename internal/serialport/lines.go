package serialport

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode"
)

// errNoData marks a read that timed out without delivering bytes.
var errNoData = errors.New("no data")

// timeoutReader turns the (0, nil) result of a timed-out serial read into
// errNoData so bufio does not spin on it.
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil {
		return 0, errNoData
	}
	return n, err
}

type lineReader struct {
	r       *bufio.Reader
	partial strings.Builder
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

func (l *lineReader) ReadLine() (string, error) {
	chunk, err := l.r.ReadString('\n')
	l.partial.WriteString(chunk)
	if err == nil {
		return l.take(), nil
	}
	switch {
	case errors.Is(err, errNoData):
		return "", ErrTimeout
	case errors.Is(err, io.EOF) && l.partial.Len() > 0:
		// flush an unterminated last line; the next call reports EOF
		return l.take(), nil
	default:
		return "", err
	}
}

func (l *lineReader) take() string {
	line := l.partial.String()
	l.partial.Reset()
	return strings.TrimRightFunc(line, unicode.IsSpace)
}
