package source

import (
	"bufio"
	"io"
	"strings"
)

const maxEventSize = 1 << 20

// eventReader splits a text/event-stream body into event data payloads.
type eventReader struct {
	scanner *bufio.Scanner
}

func newEventReader(r io.Reader) *eventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxEventSize)
	return &eventReader{scanner: scanner}
}

// Next blocks until an event carrying data is complete and returns its payload.
// Multi-line data is joined with "\n". io.EOF means the peer closed the stream; a
// partial event at EOF is discarded.
func (r *eventReader) Next() ([]byte, error) {
	var lines []string
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if len(lines) == 0 {
				continue
			}
			return []byte(strings.Join(lines, "\n")), nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		if field != "data" {
			continue
		}
		lines = append(lines, strings.TrimPrefix(value, " "))
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
