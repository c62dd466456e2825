package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/juanjtov/bidmate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (m *mockTransport) searchQueries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.searchCalls...)
}

func TestSetSearchQuery_DebounceCoalesces(t *testing.T) {
	tr := &mockTransport{
		searchFn: func(query string) ([]domain.Conversation, error) {
			return []domain.Conversation{{ID: "hit-" + query}}, nil
		},
	}
	e, _ := newTestEngine(t, tr)

	e.SetSearchQuery("k")
	e.SetSearchQuery("ki")
	e.SetSearchQuery("kitchen")

	// Query text is reflected immediately, before any search runs.
	st := e.Snapshot()
	assert.Equal(t, "kitchen", st.SearchQuery)
	assert.True(t, st.IsSearching)
	assert.Empty(t, tr.searchQueries())

	require.Eventually(t, func() bool {
		return !e.Snapshot().IsSearching
	}, time.Second, 5*time.Millisecond)

	// Only the final query fired.
	assert.Equal(t, []string{"kitchen"}, tr.searchQueries())
	st = e.Snapshot()
	require.Len(t, st.SearchResults, 1)
	assert.Equal(t, "hit-kitchen", st.SearchResults[0].ID)
}

func TestSetSearchQuery_ClearedWithinWindowNeverFires(t *testing.T) {
	tr := &mockTransport{
		searchFn: func(query string) ([]domain.Conversation, error) {
			return []domain.Conversation{{ID: "hit"}}, nil
		},
		conversations: []domain.Conversation{{ID: "c1"}, {ID: "c2"}},
	}
	e, _ := newTestEngine(t, tr)
	e.RefreshConversations(context.Background())

	e.SetSearchQuery("kitchen")
	e.SetSearchQuery("")

	st := e.Snapshot()
	assert.Empty(t, st.SearchQuery)
	assert.False(t, st.IsSearching)
	assert.Nil(t, st.SearchResults)

	// Well past the debounce window, still nothing fired.
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, tr.searchQueries())
	assert.Len(t, e.Snapshot().Displayed(), 2, "full catalogue shown when no search is active")
}

func TestSetSearchQuery_FailSoft(t *testing.T) {
	tr := &mockTransport{
		searchFn: func(query string) ([]domain.Conversation, error) {
			return nil, errors.New("search backend down")
		},
	}
	e, _ := newTestEngine(t, tr)

	e.SetSearchQuery("kitchen")
	require.Eventually(t, func() bool {
		return !e.Snapshot().IsSearching
	}, time.Second, 5*time.Millisecond)

	st := e.Snapshot()
	assert.Empty(t, st.Err, "search failures are not surfaced as errors")
	require.NotNil(t, st.SearchResults, "a failed search shows empty results, not the catalogue")
	assert.Empty(t, st.SearchResults)
}

func TestSetSearchQuery_StaleResultDropped(t *testing.T) {
	var mu sync.Mutex
	release := map[string]chan struct{}{
		"first":  make(chan struct{}),
		"second": make(chan struct{}),
	}
	tr := &mockTransport{
		searchFn: func(query string) ([]domain.Conversation, error) {
			mu.Lock()
			ch := release[query]
			mu.Unlock()
			<-ch
			return []domain.Conversation{{ID: "hit-" + query}}, nil
		},
	}
	e, _ := newTestEngine(t, tr)

	e.SetSearchQuery("first")
	require.Eventually(t, func() bool {
		return len(tr.searchQueries()) == 1
	}, time.Second, 5*time.Millisecond)

	// A second query arrives while the first is still in flight.
	e.SetSearchQuery("second")
	require.Eventually(t, func() bool {
		return len(tr.searchQueries()) == 2
	}, time.Second, 5*time.Millisecond)

	// Resolve out of order: second finishes, then first.
	close(release["second"])
	require.Eventually(t, func() bool {
		return !e.Snapshot().IsSearching
	}, time.Second, 5*time.Millisecond)
	close(release["first"])

	// The first query's late result must not clobber the second's.
	time.Sleep(30 * time.Millisecond)
	st := e.Snapshot()
	require.Len(t, st.SearchResults, 1)
	assert.Equal(t, "hit-second", st.SearchResults[0].ID)
}

func TestDisplayed(t *testing.T) {
	tr := &mockTransport{
		conversations: []domain.Conversation{{ID: "c1"}, {ID: "c2"}},
		searchFn: func(query string) ([]domain.Conversation, error) {
			return []domain.Conversation{}, nil
		},
	}
	e, _ := newTestEngine(t, tr)
	e.RefreshConversations(context.Background())

	assert.Len(t, e.Snapshot().Displayed(), 2)

	// An empty (non-nil) result set means "no matches", not "show everything".
	e.SetSearchQuery("nomatch")
	require.Eventually(t, func() bool {
		return !e.Snapshot().IsSearching
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, e.Snapshot().Displayed())

	e.SetSearchQuery("")
	assert.Len(t, e.Snapshot().Displayed(), 2)
}
