package engine

import (
	"context"
	"strings"
	"time"

	"github.com/juanjtov/bidmate/internal/domain"
)

// searchTimeout bounds an individual search call; the debounce timer fires
// outside any caller's request context.
const searchTimeout = 15 * time.Second

// SetSearchQuery updates the search query immediately and schedules the
// actual search after the debounce window, measured from the last call.
// The timer is single-slot: each call cancels and replaces any pending
// search, so only the most recent query within the window fires.
//
// An empty query clears the search view with no network call, so the full
// catalogue is displayed again.
func (e *Engine) SetSearchQuery(query string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.searchQuery = query
	if e.searchTimer != nil {
		e.searchTimer.Stop()
		e.searchTimer = nil
	}
	e.searchGen++

	if strings.TrimSpace(query) == "" {
		e.searchResults = nil
		e.isSearching = false
		return
	}

	gen := e.searchGen
	e.isSearching = true
	e.searchTimer = time.AfterFunc(e.debounce, func() {
		e.runSearch(gen, query)
	})
}

// runSearch performs the debounced search call. Results from superseded
// queries are dropped. Failures yield an empty result set rather than an
// error: search never blocks the chat experience.
func (e *Engine) runSearch(gen int64, query string) {
	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	results, err := e.transport.SearchConversations(ctx, e.orgID, query)
	if err != nil {
		e.log.Warn().Err(err).Str("query", query).Msg("conversation search failed")
		results = nil
	}
	if results == nil {
		// An empty sequence is a valid "no matches" result.
		results = []domain.Conversation{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.searchGen {
		return
	}
	e.searchResults = results
	e.isSearching = false
}
