package upstream

import (
	"bufio"
	"io"
	"strings"
)

// streamEvent is one event parsed from a text/event-stream body.
type streamEvent struct {
	Event string
	Data  string
	ID    string
}

// eventReader parses text/event-stream framing: fields until a blank line,
// "data" lines joined with newlines, comments skipped.
type eventReader struct {
	scanner *bufio.Scanner
	lastID  string
}

func newEventReader(r io.Reader, maxLine int) *eventReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxLine)
	return &eventReader{scanner: s}
}

// Next returns the next event carrying data. It returns io.EOF when the
// stream ends cleanly.
func (r *eventReader) Next() (*streamEvent, error) {
	var ev streamEvent
	var data strings.Builder
	hasData := false

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if hasData {
				ev.Data = data.String()
				ev.ID = r.lastID
				return &ev, nil
			}
			ev = streamEvent{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseField(line)
		switch field {
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "event":
			ev.Event = value
		case "id":
			// Ids containing NUL are ignored.
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	// An unterminated trailing event is discarded.
	return nil, io.EOF
}

// LastID returns the most recent event id seen on the stream.
func (r *eventReader) LastID() string { return r.lastID }

// parseField splits a line into field and value, dropping one leading
// space from the value.
func parseField(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
