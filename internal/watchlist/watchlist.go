// Package watchlist tracks markets a caller has asked to follow and
// refreshes their current state on read.
package watchlist

import (
	"context"
	"sync"
	"time"

	"github.com/artemgubar/predictive-market-federation/internal/schema"
)

// Entry is one tracked market's bookkeeping, independent of its live data.
type Entry struct {
	FullID    string
	Alias     string
	TrackedAt time.Time
}

// Snapshot is a tracked market successfully refreshed against its platform.
// A failed refresh is reported as a RefreshError instead.
type Snapshot struct {
	Market    schema.Market
	Alias     string
	TrackedAt time.Time
}

// RefreshError pairs a tracked market's ID with the failure refreshing it.
type RefreshError struct {
	FullID string
	Err    error
}

// Fetcher refreshes a single market's live state, keyed by the federation ID
// "{platform}:{native_id}". The orchestrator supplies this.
type Fetcher func(ctx context.Context, platform, nativeID string) (schema.Market, error)

// List is the in-memory tracking set, keyed by federation ID.
type List struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty watchlist.
func New() *List {
	return &List{entries: make(map[string]Entry)}
}

// Track adds or replaces a tracked market.
func (l *List) Track(fullID, alias string, trackedAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[fullID] = Entry{FullID: fullID, Alias: alias, TrackedAt: trackedAt}
}

// Untrack removes a tracked market. Reports whether it was present.
func (l *List) Untrack(fullID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[fullID]; !ok {
		return false
	}
	delete(l.entries, fullID)
	return true
}

// Len reports the number of tracked markets.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a snapshot copy of the tracking bookkeeping, sorted
// deterministically by tracked_at is not guaranteed by this layer; callers
// needing a stable order should sort the result.
func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	return out
}

// Refresh re-fetches every tracked market concurrently via fetch, splitting
// native_id/platform out of each federation ID. A failure on one market
// does not block the others; it is collected into the errors slice.
func (l *List) Refresh(ctx context.Context, fetch Fetcher) ([]Snapshot, []RefreshError) {
	entries := l.Entries()

	type result struct {
		snap *Snapshot
		fail *RefreshError
	}
	resultsCh := make(chan result, len(entries))

	var wg sync.WaitGroup
	for _, e := range entries {
		e := e
		wg.Add(1)
		go func() {
			defer wg.Done()
			platform, nativeID, ok := splitFullID(e.FullID)
			if !ok {
				resultsCh <- result{fail: &RefreshError{FullID: e.FullID, Err: errMalformedID(e.FullID)}}
				return
			}
			m, err := fetch(ctx, platform, nativeID)
			if err != nil {
				resultsCh <- result{fail: &RefreshError{FullID: e.FullID, Err: err}}
				return
			}
			resultsCh <- result{snap: &Snapshot{Market: m, Alias: e.Alias, TrackedAt: e.TrackedAt}}
		}()
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	var snapshots []Snapshot
	var errs []RefreshError
	for r := range resultsCh {
		switch {
		case r.snap != nil:
			snapshots = append(snapshots, *r.snap)
		case r.fail != nil:
			errs = append(errs, *r.fail)
		}
	}
	return snapshots, errs
}

func splitFullID(fullID string) (platform, nativeID string, ok bool) {
	for i := 0; i < len(fullID); i++ {
		if fullID[i] == ':' {
			return fullID[:i], fullID[i+1:], true
		}
	}
	return "", "", false
}

type malformedIDError struct{ fullID string }

func (e malformedIDError) Error() string {
	return "malformed tracked market id: " + e.fullID
}

func errMalformedID(fullID string) error { return malformedIDError{fullID: fullID} }
