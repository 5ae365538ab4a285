package sse

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Event types written by the stream handler.
const (
	// EventTypeConnected is sent when a subscriber stream opens.
	EventTypeConnected = "connected"

	// EventTypeMessage is the default type of relayed payloads.
	EventTypeMessage = "message"
)

// ConnectedEvent is the payload of the connected event.
type ConnectedEvent struct {
	SubscriberID string            `json:"subscriber_id"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Frame is one event on the wire.
type Frame struct {
	ID    string
	Event string
	Data  []byte
	Retry time.Duration
}

// WriteFrame writes f in text/event-stream format. Each line of Data becomes
// its own "data:" field. The format cannot carry a carriage return inside a
// field, so "\r\n", "\r" and "\n" all end a line and clients rebuild every
// line break as "\n".
func WriteFrame(w io.Writer, f Frame) error {
	var buf bytes.Buffer
	if f.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", f.ID)
	}
	if f.Event != "" {
		fmt.Fprintf(&buf, "event: %s\n", f.Event)
	}
	if f.Retry > 0 {
		fmt.Fprintf(&buf, "retry: %s\n", strconv.FormatInt(f.Retry.Milliseconds(), 10))
	}
	writeData(&buf, f.Data)
	buf.WriteByte('\n')

	_, err := w.Write(buf.Bytes())
	return err
}

func writeData(buf *bytes.Buffer, data []byte) {
	for {
		i := bytes.IndexAny(data, "\r\n")
		buf.WriteString("data: ")
		if i < 0 {
			buf.Write(data)
			buf.WriteByte('\n')
			return
		}
		buf.Write(data[:i])
		buf.WriteByte('\n')
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			i++
		}
		data = data[i+1:]
	}
}

// WriteComment writes a comment line, used for keep-alives.
func WriteComment(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w, ": %s\n\n", text)
	return err
}
