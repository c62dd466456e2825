// Package stream decodes the service's server-sent event framing into typed
// protocol events.
//
// The wire format is newline-delimited: each frame is "data: " followed by a
// JSON object carrying a "type" discriminator. Frames that do not match this
// shape are skipped, which keeps the decoder forward-compatible with framing
// noise (comments, keep-alives, unknown event kinds).
package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// EventType discriminates protocol events.
type EventType string

const (
	// EventStart announces the durable conversation ID for the exchange.
	// Emitted at most once per stream, before any chunk.
	EventStart EventType = "start"

	// EventChunk carries an incremental text fragment of the reply.
	EventChunk EventType = "chunk"

	// EventDone marks the normal end of the exchange.
	EventDone EventType = "done"

	// EventError reports a terminal application-level error. The transport
	// may keep draining, but the exchange is over.
	EventError EventType = "error"
)

// dataPrefix is the fixed marker that opens every frame.
const dataPrefix = "data: "

// maxFrameSize bounds a single frame line. Chunk frames carry arbitrary
// model output, so the scanner's default 64 KiB cap is too small.
const maxFrameSize = 1 << 20

// Event is a single decoded protocol event.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Content        string    `json:"content,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// Decoder turns a raw incremental text source into a lazy, finite sequence of
// protocol events. It is non-restartable: once Next returns io.EOF it will
// keep doing so.
type Decoder struct {
	scanner *bufio.Scanner
	done    bool
}

// NewDecoder creates a decoder reading frames from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &Decoder{scanner: scanner}
}

// Next returns the next decoded event. Lines that are not valid framed JSON
// are silently skipped. End of input yields io.EOF; any other error is a
// transport-level read failure.
func (d *Decoder) Next() (Event, error) {
	if d.done {
		return Event{}, io.EOF
	}

	for d.scanner.Scan() {
		line := d.scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, dataPrefix)), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case EventStart, EventChunk, EventDone, EventError:
			return ev, nil
		default:
			// Unknown event kinds are framing noise.
			continue
		}
	}

	d.done = true
	if err := d.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}
