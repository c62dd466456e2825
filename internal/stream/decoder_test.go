package stream

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, input string) []Event {
	t.Helper()
	d := NewDecoder(strings.NewReader(input))

	var events []Event
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestDecoder_FullExchange(t *testing.T) {
	input := `data: {"type": "start", "conversation_id": "c1"}` + "\n\n" +
		`data: {"type": "chunk", "content": "Sure, "}` + "\n\n" +
		`data: {"type": "chunk", "content": "let's begin."}` + "\n\n" +
		`data: {"type": "done"}` + "\n\n"

	events := decodeAll(t, input)
	require.Len(t, events, 4)

	assert.Equal(t, EventStart, events[0].Type)
	assert.Equal(t, "c1", events[0].ConversationID)
	assert.Equal(t, EventChunk, events[1].Type)
	assert.Equal(t, "Sure, ", events[1].Content)
	assert.Equal(t, "let's begin.", events[2].Content)
	assert.Equal(t, EventDone, events[3].Type)
}

func TestDecoder_ErrorEvent(t *testing.T) {
	input := `data: {"type": "start", "conversation_id": "c2"}` + "\n" +
		`data: {"type": "error", "message": "model overloaded"}` + "\n"

	events := decodeAll(t, input)
	require.Len(t, events, 2)
	assert.Equal(t, EventError, events[1].Type)
	assert.Equal(t, "model overloaded", events[1].Message)
}

func TestDecoder_SkipsFramingNoise(t *testing.T) {
	input := ": keep-alive\n" +
		"event: message\n" +
		"data: not json at all\n" +
		`data: {"type": "mystery"}` + "\n" +
		`{"type": "chunk", "content": "unprefixed"}` + "\n" +
		`data: {"type": "chunk", "content": "kept"}` + "\n"

	events := decodeAll(t, input)
	require.Len(t, events, 1)
	assert.Equal(t, "kept", events[0].Content)
}

func TestDecoder_EmptyStream(t *testing.T) {
	events := decodeAll(t, "")
	assert.Empty(t, events)
}

func TestDecoder_EOFWithoutTerminalEvent(t *testing.T) {
	// A stream that just stops is not a decode error; the caller decides
	// what an exchange with no terminal event means.
	input := `data: {"type": "chunk", "content": "partial"}` + "\n"

	d := NewDecoder(strings.NewReader(input))
	ev, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "partial", ev.Content)

	_, err = d.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoder_NonRestartable(t *testing.T) {
	d := NewDecoder(strings.NewReader(""))
	_, err := d.Next()
	require.Equal(t, io.EOF, err)
	_, err = d.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoder_OversizedChunk(t *testing.T) {
	// A single chunk well past the default 64 KiB scanner buffer must still
	// decode as an event, not surface as a read failure.
	big := strings.Repeat("x", 200*1024)
	input := `data: {"type": "chunk", "content": "` + big + `"}` + "\n" +
		`data: {"type": "done"}` + "\n"

	events := decodeAll(t, input)
	require.Len(t, events, 2)
	assert.Equal(t, EventChunk, events[0].Type)
	assert.Len(t, events[0].Content, 200*1024)
	assert.Equal(t, EventDone, events[1].Type)
}

func TestDecoder_ReadFailure(t *testing.T) {
	d := NewDecoder(&failingReader{})
	_, err := d.Next()
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)

	// After a read failure the decoder stays terminal.
	_, err = d.Next()
	assert.Equal(t, io.EOF, err)
}

type failingReader struct{}

func (*failingReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
