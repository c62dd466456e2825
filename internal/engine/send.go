package engine

import (
	"context"
	"io"
	"strings"

	"github.com/juanjtov/bidmate/internal/api"
	"github.com/juanjtov/bidmate/internal/domain"
	"github.com/juanjtov/bidmate/internal/stream"
)

// StreamCallback receives protocol events as they are applied to engine
// state, so a caller can render the assistant's reply incrementally.
// Events from superseded exchanges are never delivered.
type StreamCallback func(ev stream.Event)

// SendMessage sends a user turn and streams the assistant's reply into the
// transcript. A blank message is a no-op, not an error. Any prior in-flight
// exchange is superseded first; its late events are discarded.
//
// The user message is appended optimistically with a provisional ID. If the
// send fails before the server acknowledges the exchange with a start
// event, the optimistic echo is retracted; after acknowledgment it
// persists even if the exchange is later cancelled or fails.
func (e *Engine) SendMessage(ctx context.Context, content string, cb StreamCallback) error {
	content = strings.TrimSpace(content)
	if content == "" || e.orgID == "" {
		// Validation failures are silently ignored; the caller gates input.
		return nil
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.lastError = ""
	e.abandonExchangeLocked()

	userMsg := domain.NewProvisionalMessage(e.activeID, domain.RoleUser, content)
	e.messages = append(e.messages, userMsg)
	e.isLoading = true

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.inFlight = &exchange{userMsgID: userMsg.ID}
	gen := e.gen
	convID := e.activeID
	e.mu.Unlock()

	body, err := e.transport.OpenStream(ctx, e.orgID, api.StreamRequest{
		ConversationID: convID,
		Message:        content,
	})
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled before the exchange was acknowledged. When a newer
			// send superseded this one it already owns the state; otherwise
			// the caller cancelled, and this exchange still has to retract
			// its echo and settle the flags itself.
			e.mu.Lock()
			if gen == e.gen {
				e.removeMessagesLocked(userMsg.ID)
				e.isLoading = false
				e.cancel = nil
				e.inFlight = nil
			}
			e.mu.Unlock()
			return nil
		}
		e.mu.Lock()
		if gen == e.gen {
			// The send never reached the server: retract the optimistic echo.
			e.removeMessagesLocked(userMsg.ID)
			e.lastError = "failed to send message"
			e.isLoading = false
			e.cancel = nil
			e.inFlight = nil
		}
		e.mu.Unlock()
		return err
	}
	defer body.Close()

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return nil
	}
	assistantMsg := domain.NewProvisionalMessage(convID, domain.RoleAssistant, "")
	e.messages = append(e.messages, assistantMsg)
	e.inFlight.assistantMsgID = assistantMsg.ID
	e.isStreaming = true
	e.mu.Unlock()

	err = e.consumeStream(ctx, gen, body, userMsg.ID, assistantMsg.ID, cb)

	e.mu.Lock()
	if gen == e.gen {
		if ctx.Err() != nil && e.inFlight != nil && !e.inFlight.acked {
			// Caller-cancelled before the server acknowledged the exchange:
			// the echoes are retracted just as on supersession.
			e.removeMessagesLocked(e.inFlight.userMsgID, e.inFlight.assistantMsgID)
		}
		e.isLoading = false
		e.isStreaming = false
		e.cancel = nil
		e.inFlight = nil
	}
	e.mu.Unlock()
	return err
}

// consumeStream applies decoded protocol events to engine state until the
// stream ends. Cancellation is checked between events: once observed, no
// further event is applied even if the transport keeps draining.
func (e *Engine) consumeStream(ctx context.Context, gen int64, body io.Reader, userMsgID, assistantMsgID string, cb StreamCallback) error {
	dec := stream.NewDecoder(body)
	acked := false

	for {
		ev, err := dec.Next()
		if err == io.EOF {
			// End of stream with no terminal event is not itself an error.
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil // cancelled mid-read; not a failure
			}
			e.mu.Lock()
			if gen == e.gen {
				if !acked {
					e.removeMessagesLocked(userMsgID, assistantMsgID)
				}
				e.lastError = "connection lost while streaming response"
			}
			e.mu.Unlock()
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		applied := false
		e.mu.Lock()
		if gen == e.gen {
			applied = true
			switch ev.Type {
			case stream.EventStart:
				acked = true
				e.inFlight.acked = true
				e.setActiveLocked(ev.ConversationID)
				e.retargetLocked(ev.ConversationID, userMsgID, assistantMsgID)
			case stream.EventChunk:
				e.appendChunkLocked(assistantMsgID, ev.Content)
			case stream.EventError:
				// Terminal for the exchange, but keep draining; partial
				// content already streamed is retained.
				e.lastError = ev.Message
			case stream.EventDone:
			}
		}
		e.mu.Unlock()

		if applied && cb != nil {
			cb(ev)
		}
		if applied && ev.Type == stream.EventDone {
			return nil
		}
	}
}

// retargetLocked points the exchange's provisional messages at the durable
// conversation ID announced by the start event.
func (e *Engine) retargetLocked(conversationID string, msgIDs ...string) {
	for i := range e.messages {
		for _, id := range msgIDs {
			if e.messages[i].ID == id {
				e.messages[i].ConversationID = conversationID
			}
		}
	}
}

// appendChunkLocked grows the in-progress assistant message. The message
// keeps its identity and position: only the last element of the transcript
// is replaced with the updated copy.
func (e *Engine) appendChunkLocked(assistantMsgID, content string) {
	last := len(e.messages) - 1
	if last < 0 || e.messages[last].ID != assistantMsgID {
		return
	}
	updated := e.messages[last]
	updated.Content += content
	e.messages[last] = updated
}
