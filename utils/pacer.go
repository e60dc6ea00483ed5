package utils

import (
	"math/rand"
	"sync"
	"time"
)

// Pacer inserts a randomized polite delay between consecutive browser
// actions. The extraction loop is single-threaded by design (one shared
// browser session), so the pacer only has to throttle, not coordinate.
type Pacer struct {
	min time.Duration
	max time.Duration

	sleep func(time.Duration)
}

// NewPacer creates a Pacer sleeping between min and max per Wait call.
// Swapped bounds are corrected.
func NewPacer(min, max time.Duration) *Pacer {
	if max < min {
		min, max = max, min
	}
	return &Pacer{min: min, max: max, sleep: time.Sleep}
}

// Wait blocks for a random duration in [min, max].
func (p *Pacer) Wait() {
	p.sleep(p.Delay())
}

// Delay returns the duration the next Wait would sleep.
func (p *Pacer) Delay() time.Duration {
	if p.max <= 0 {
		return 0
	}
	if p.max == p.min {
		return p.min
	}
	return p.min + time.Duration(rand.Int63n(int64(p.max-p.min)))
}

// LinkSet is a thread-safe set for tracking place links already seen during
// results discovery.
type LinkSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewLinkSet creates an empty LinkSet.
func NewLinkSet() *LinkSet {
	return &LinkSet{seen: make(map[string]struct{})}
}

// Add returns true if the link was newly added, false if already present.
func (s *LinkSet) Add(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[link]; exists {
		return false
	}
	s.seen[link] = struct{}{}
	return true
}

// Contains returns true if the link has already been seen.
func (s *LinkSet) Contains(link string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[link]
	return exists
}

// Size returns the number of unique links tracked.
func (s *LinkSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
