package service

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// TokenFilter is an in-memory bloom filter over all known tokens. The public
// redirect path consults it before touching Redis or Postgres so that random
// probing never reaches the datastore. Until the first successful Reload the
// filter fails open and reports every token as possibly present.
type TokenFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	loaded bool

	capacity uint
	fpRate   float64
}

// NewTokenFilter sizes a filter for the expected token count and false
// positive rate.
func NewTokenFilter(capacity uint, fpRate float64) *TokenFilter {
	if capacity == 0 {
		capacity = 100_000
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.001
	}
	return &TokenFilter{
		filter:   bloom.NewWithEstimates(capacity, fpRate),
		capacity: capacity,
		fpRate:   fpRate,
	}
}

// Add registers a freshly created token.
func (f *TokenFilter) Add(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(token)
}

// MayContain reports whether the token could exist. False means the token is
// definitely unknown; bloom filters never yield false negatives.
func (f *TokenFilter) MayContain(token string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.loaded {
		return true
	}
	return f.filter.TestString(token)
}

// Reload swaps in a fresh filter built from the full token set. Deleted
// tokens linger as false positives between reloads, which only costs an
// extra lookup.
func (f *TokenFilter) Reload(tokens []string) {
	fresh := bloom.NewWithEstimates(f.capacity, f.fpRate)
	for _, token := range tokens {
		fresh.AddString(token)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = fresh
	f.loaded = true
}
