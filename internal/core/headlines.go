package core

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	headlineTTL = 5 * time.Minute
	// Parsed items at or below this many runes are discarded as noise.
	minHeadlineLength = 10
)

type headlineFetchFunc func(ctx context.Context) ([]string, error)

// HeadlineCache is a time-boxed cache over a live headline fetch. Reads
// within the TTL return a freshly shuffled copy of the cached list so the
// ticker visually varies without a new fetch; a failed or empty fetch
// populates the cache with the fixed fallback list instead, so the ticker is
// never empty once a first load has been attempted.
type HeadlineCache struct {
	mu     sync.Mutex
	fetch  headlineFetchFunc
	logger *zap.Logger
	now    func() time.Time
	rng    *rand.Rand

	data  []string
	stamp time.Time
}

func NewHeadlineCache(fetch headlineFetchFunc, logger *zap.Logger) *HeadlineCache {
	return &HeadlineCache{
		fetch:  fetch,
		logger: logger,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Headlines returns the current headline list. forceRefresh, a cache miss or
// a stale entry trigger a live fetch; otherwise the cached data is reused.
func (h *HeadlineCache) Headlines(ctx context.Context, forceRefresh bool) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !forceRefresh && len(h.data) > 0 && h.now().Sub(h.stamp) < headlineTTL {
		return h.shuffledCopyLocked()
	}

	items, err := h.fetch(ctx)
	if err != nil || len(items) == 0 {
		if err != nil {
			h.logger.Warn("headline fetch failed, using fallback list", zap.Error(err))
		} else {
			h.logger.Warn("headline fetch returned nothing, using fallback list")
		}
		items = append([]string(nil), fallbackHeadlines...)
	}

	h.data = items
	h.stamp = h.now()
	return h.shuffledCopyLocked()
}

// Invalidate empties the cache. Independent of any session reset.
func (h *HeadlineCache) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = nil
	h.stamp = time.Time{}
}

func (h *HeadlineCache) shuffledCopyLocked() []string {
	out := append([]string(nil), h.data...)
	h.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
