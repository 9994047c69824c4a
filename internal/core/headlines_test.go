package core

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"
)

type scriptedFetch struct {
	items []string
	err   error
	calls int
}

func (f *scriptedFetch) fetch(ctx context.Context) ([]string, error) {
	f.calls++
	return f.items, f.err
}

// manualClock only moves when the test advances it.
type manualClock struct {
	current time.Time
}

func (c *manualClock) now() time.Time          { return c.current }
func (c *manualClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestCache(fetch headlineFetchFunc) (*HeadlineCache, *manualClock) {
	clock := &manualClock{current: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)}
	cache := NewHeadlineCache(fetch, zap.NewNop())
	cache.now = clock.now
	return cache, clock
}

func samePermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

var sixHeadlines = []string{
	"Titre politique du jour au Burkina",
	"Titre économique du jour au Burkina",
	"Titre société du jour au Burkina",
	"Titre sport du jour au Burkina",
	"Titre culture du jour au Burkina",
	"Titre santé du jour au Burkina",
}

func TestFreshReadReturnsShuffledCopyWithoutFetch(t *testing.T) {
	fetch := &scriptedFetch{items: sixHeadlines}
	cache, clock := newTestCache(fetch.fetch)
	ctx := context.Background()

	first := cache.Headlines(ctx, false)
	if fetch.calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", fetch.calls)
	}

	// Two minutes later the entry is still fresh: same items, no new call.
	clock.advance(2 * time.Minute)
	second := cache.Headlines(ctx, false)
	if fetch.calls != 1 {
		t.Errorf("cache hit triggered a fetch, calls = %d", fetch.calls)
	}
	if !samePermutation(first, second) {
		t.Errorf("cache hit returned different items: %v vs %v", first, second)
	}
	if !samePermutation(second, sixHeadlines) {
		t.Errorf("expected a permutation of the cached list, got %v", second)
	}

	// The returned slice is a copy: mutating it must not corrupt the cache.
	second[0] = "corrompu"
	third := cache.Headlines(ctx, false)
	if !samePermutation(third, sixHeadlines) {
		t.Errorf("cache corrupted by caller mutation: %v", third)
	}
}

func TestStaleEntryRefetches(t *testing.T) {
	fetch := &scriptedFetch{items: sixHeadlines}
	cache, clock := newTestCache(fetch.fetch)
	ctx := context.Background()

	cache.Headlines(ctx, false)
	clock.advance(headlineTTL) // exactly at the TTL counts as stale
	cache.Headlines(ctx, false)

	if fetch.calls != 2 {
		t.Errorf("expected refetch on stale entry, calls = %d", fetch.calls)
	}
}

func TestForceRefreshBypassesFreshEntry(t *testing.T) {
	fetch := &scriptedFetch{items: sixHeadlines}
	cache, _ := newTestCache(fetch.fetch)
	ctx := context.Background()

	cache.Headlines(ctx, false)
	cache.Headlines(ctx, true)

	if fetch.calls != 2 {
		t.Errorf("expected forced fetch, calls = %d", fetch.calls)
	}
}

func TestFetchFailurePopulatesFallback(t *testing.T) {
	fetch := &scriptedFetch{err: errors.New("réseau indisponible")}
	cache, clock := newTestCache(fetch.fetch)
	ctx := context.Background()

	got := cache.Headlines(ctx, false)
	if !samePermutation(got, fallbackHeadlines) {
		t.Fatalf("expected fallback list, got %v", got)
	}

	// The fallback is cached like real data: no hammering while fresh.
	clock.advance(time.Minute)
	cache.Headlines(ctx, false)
	if fetch.calls != 1 {
		t.Errorf("fallback entry not cached, calls = %d", fetch.calls)
	}
}

func TestEmptyFetchPopulatesFallback(t *testing.T) {
	fetch := &scriptedFetch{items: nil}
	cache, _ := newTestCache(fetch.fetch)

	got := cache.Headlines(context.Background(), false)
	if !samePermutation(got, fallbackHeadlines) {
		t.Errorf("expected fallback list, got %v", got)
	}
}

func TestInvalidateForcesNextFetch(t *testing.T) {
	fetch := &scriptedFetch{items: sixHeadlines}
	cache, _ := newTestCache(fetch.fetch)
	ctx := context.Background()

	cache.Headlines(ctx, false)
	cache.Invalidate()
	cache.Headlines(ctx, false)

	if fetch.calls != 2 {
		t.Errorf("expected fetch after invalidate, calls = %d", fetch.calls)
	}
}
