// Package engine owns the mutable state of a conversational estimation
// session: the transcript being streamed, the active conversation, the
// catalogue of past conversations, and the search view over it.
//
// The engine is the single writer of its state. Callers invoke operations
// and read consistent copies via Snapshot; they never mutate fields
// directly. At most one streaming exchange is owned at a time: starting a
// new one supersedes the previous one, so a late-arriving chunk from an
// abandoned exchange is never applied.
package engine

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/juanjtov/bidmate/internal/api"
	"github.com/juanjtov/bidmate/internal/domain"
	"github.com/juanjtov/bidmate/internal/logging"
)

// defaultDebounce is the search debounce window.
const defaultDebounce = 300 * time.Millisecond

// Transport is the narrow collaborator through which the engine reaches the
// remote estimation service.
type Transport interface {
	ListConversations(ctx context.Context, orgID string) ([]domain.Conversation, error)
	SearchConversations(ctx context.Context, orgID, query string) ([]domain.Conversation, error)
	GetConversation(ctx context.Context, orgID, id string) (*domain.ConversationDetail, error)
	DeleteConversation(ctx context.Context, orgID, id string) error
	SaveConversation(ctx context.Context, orgID, id, title string) (*domain.Conversation, error)
	ExportMessage(ctx context.Context, orgID, conversationID, messageID string) (string, error)
	OpenStream(ctx context.Context, orgID string, req api.StreamRequest) (io.ReadCloser, error)
}

// SessionStore remembers the active conversation per organization across
// restarts. Implementations must treat missing entries as "no active
// conversation" and never fail hard.
type SessionStore interface {
	ActiveConversation(orgID string) (string, bool)
	SetActive(orgID, conversationID string)
	ClearActive(orgID string)
}

// Options configures an Engine.
type Options struct {
	OrgID string

	// Debounce is the search debounce window. Zero means the default 300ms.
	Debounce time.Duration
}

// exchange tracks the provisional messages of the in-flight send so a
// superseding operation knows what it may retract.
type exchange struct {
	userMsgID      string
	assistantMsgID string
	acked          bool // a start event was observed
}

// Engine owns all mutable session state for one organization.
type Engine struct {
	orgID     string
	debounce  time.Duration
	transport Transport
	sessions  SessionStore
	log       *logging.Logger

	mu            sync.Mutex
	messages      []domain.Message
	activeID      string
	conversations []domain.Conversation
	searchQuery   string
	searchResults []domain.Conversation // nil means "no active search"
	isLoading     bool
	isStreaming   bool
	isSearching   bool
	lastError     string

	gen      int64 // exchange generation; state mutations from stale exchanges are dropped
	cancel   context.CancelFunc
	inFlight *exchange

	searchGen   int64
	searchTimer *time.Timer

	restoreOnce sync.Once
	restored    bool
	closed      bool
}

// New creates an engine for the given organization, injected with its
// transport and session store.
func New(opts Options, transport Transport, sessions SessionStore, log *logging.Logger) *Engine {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Engine{
		orgID:     opts.OrgID,
		debounce:  debounce,
		transport: transport,
		sessions:  sessions,
		log:       log.Sub("engine"),
	}
}

// State is a consistent copy of the engine's observable state.
type State struct {
	Messages             []domain.Message
	ActiveConversationID string
	Conversations        []domain.Conversation
	SearchQuery          string
	SearchResults        []domain.Conversation
	IsLoading            bool
	IsStreaming          bool
	IsSearching          bool
	Err                  string
}

// Displayed returns the catalogue view: search results when a search is
// active, the full catalogue otherwise.
func (s State) Displayed() []domain.Conversation {
	if s.SearchResults != nil {
		return s.SearchResults
	}
	return s.Conversations
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		ActiveConversationID: e.activeID,
		SearchQuery:          e.searchQuery,
		IsLoading:            e.isLoading,
		IsStreaming:          e.isStreaming,
		IsSearching:          e.isSearching,
		Err:                  e.lastError,
	}
	st.Messages = append([]domain.Message(nil), e.messages...)
	st.Conversations = append([]domain.Conversation(nil), e.conversations...)
	if e.searchResults != nil {
		st.SearchResults = append([]domain.Conversation{}, e.searchResults...)
	}
	return st
}

// Restore reads the session store for the organization and, if an active
// conversation was remembered, loads it. Executed at most once per engine;
// later calls are no-ops. Changes to the active conversation are only
// mirrored back to the store after this step completes, so a remembered
// value cannot be overwritten before it has been consumed.
func (e *Engine) Restore(ctx context.Context) {
	e.restoreOnce.Do(func() {
		if id, ok := e.sessions.ActiveConversation(e.orgID); ok {
			if err := e.LoadConversation(ctx, id); err != nil {
				// Stale session: clear it and proceed as if none existed.
				e.log.Warn().Err(err).Str("conversation", id).Msg("clearing stale session")
				e.sessions.ClearActive(e.orgID)
				e.mu.Lock()
				e.lastError = ""
				e.mu.Unlock()
			}
		}
		e.mu.Lock()
		e.restored = true
		e.mu.Unlock()
	})
}

// LoadConversation fetches a conversation's transcript and makes it the
// active conversation. On failure the prior state is left untouched and a
// generic error is surfaced.
func (e *Engine) LoadConversation(ctx context.Context, id string) error {
	e.mu.Lock()
	e.lastError = ""
	e.isLoading = true
	e.mu.Unlock()

	detail, err := e.transport.GetConversation(ctx, e.orgID, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.isLoading = false
	if err != nil {
		e.lastError = "failed to load conversation"
		return err
	}

	e.messages = append([]domain.Message(nil), detail.Messages...)
	e.setActiveLocked(detail.ID)
	return nil
}

// StartNewConversation abandons the current session: any in-flight exchange
// is cancelled, the transcript and error are cleared, and the remembered
// session is forgotten. Idempotent.
func (e *Engine) StartNewConversation() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abandonExchangeLocked()
	e.messages = nil
	e.lastError = ""
	e.isLoading = false
	e.isStreaming = false
	e.setActiveLocked("")
}

// DeleteConversation deletes a conversation on the service. Deleting the
// active conversation first resets the session. The catalogue is refreshed
// afterward regardless of the outcome.
func (e *Engine) DeleteConversation(ctx context.Context, id string) error {
	e.mu.Lock()
	active := e.activeID == id
	e.mu.Unlock()
	if active {
		e.StartNewConversation()
	}

	err := e.transport.DeleteConversation(ctx, e.orgID, id)
	if err != nil {
		e.mu.Lock()
		e.lastError = "failed to delete conversation"
		e.mu.Unlock()
	}

	e.RefreshConversations(ctx)
	return err
}

// RefreshConversations re-fetches the full catalogue and replaces it
// wholesale. Best-effort: failures are logged, not surfaced, so a flaky
// catalogue never blocks the chat itself.
func (e *Engine) RefreshConversations(ctx context.Context) {
	conversations, err := e.transport.ListConversations(ctx, e.orgID)
	if err != nil {
		e.log.Warn().Err(err).Msg("failed to refresh conversations")
		return
	}

	e.mu.Lock()
	e.conversations = conversations
	e.mu.Unlock()
}

// SaveConversation marks a conversation as saved, optionally renaming it,
// then refreshes the catalogue.
func (e *Engine) SaveConversation(ctx context.Context, id, title string) error {
	_, err := e.transport.SaveConversation(ctx, e.orgID, id, title)
	if err != nil {
		e.mu.Lock()
		e.lastError = "failed to save conversation"
		e.mu.Unlock()
		return err
	}

	e.RefreshConversations(ctx)
	return nil
}

// ExportMessage exports a persisted assistant message as a document and
// returns its download URL. An empty messageID exports the last assistant
// message. Provisional messages have no durable ID and cannot be exported.
func (e *Engine) ExportMessage(ctx context.Context, conversationID, messageID string) (string, error) {
	return e.transport.ExportMessage(ctx, e.orgID, conversationID, messageID)
}

// Close disposes the engine: the in-flight exchange is cancelled and any
// pending search is dropped. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.abandonExchangeLocked()
	e.searchGen++
	if e.searchTimer != nil {
		e.searchTimer.Stop()
		e.searchTimer = nil
	}
}

// setActiveLocked changes the active conversation and mirrors it to the
// session store once the restore step has completed.
func (e *Engine) setActiveLocked(id string) {
	e.activeID = id
	if !e.restored {
		return
	}
	if id == "" {
		e.sessions.ClearActive(e.orgID)
	} else {
		e.sessions.SetActive(e.orgID, id)
	}
}

// abandonExchangeLocked cancels the in-flight exchange and bumps the
// generation so its continuation can no longer touch state. Provisional
// messages of an unacknowledged exchange are retracted; once the server has
// acknowledged the exchange with a start event, the optimistic state is
// allowed to persist.
func (e *Engine) abandonExchangeLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.inFlight != nil && !e.inFlight.acked {
		e.removeMessagesLocked(e.inFlight.userMsgID, e.inFlight.assistantMsgID)
	}
	e.inFlight = nil
	e.gen++
}

// removeMessagesLocked drops messages by ID, preserving order.
func (e *Engine) removeMessagesLocked(ids ...string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			drop[id] = true
		}
	}

	kept := e.messages[:0]
	for _, m := range e.messages {
		if !drop[m.ID] {
			kept = append(kept, m)
		}
	}
	e.messages = kept
}
