// Package assets caches asset-pair reference data owned by an external
// dictionary service.
package assets

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/candle-writer/internal/logging"
)

// DefaultAccuracy is used when a pair has no configured decimal accuracy.
const DefaultAccuracy = 5

// Pair is the reference entity for a tradable asset pair.
type Pair struct {
	ID         string
	Accuracy   int
	IsDisabled bool
}

// Repository fetches the full asset pair dictionary from its owner.
type Repository interface {
	GetAll(ctx context.Context) ([]Pair, error)
}

// Service serves a cached snapshot of the dictionary, refreshed at most once
// per hour. Stale data is served while a refresh is pending or failing.
type Service struct {
	repo    Repository
	log     *logging.Logger
	refresh time.Duration

	mu         sync.RWMutex
	pairs      map[string]Pair // keyed by lower-cased pair ID
	lastUpdate time.Time
}

func NewService(repo Repository, log *logging.Logger) *Service {
	return &Service{
		repo:    repo,
		log:     log,
		refresh: time.Hour,
		pairs:   make(map[string]Pair),
	}
}

// GetAssetPair returns the pair for id, or ok=false if it is unknown. A miss
// triggers at most one refresh fetch before the lookup is retried.
func (s *Service) GetAssetPair(ctx context.Context, id string) (Pair, bool) {
	key := strings.ToLower(id)

	s.mu.RLock()
	pair, ok := s.pairs[key]
	s.mu.RUnlock()
	if ok {
		return pair, true
	}

	s.update(ctx)

	s.mu.RLock()
	pair, ok = s.pairs[key]
	s.mu.RUnlock()
	return pair, ok
}

// GetAllAssetPairs returns the cached snapshot.
func (s *Service) GetAllAssetPairs(ctx context.Context) []Pair {
	s.update(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]Pair, 0, len(s.pairs))
	for _, p := range s.pairs {
		all = append(all, p)
	}
	return all
}

// Accuracy returns the decimal accuracy for id, falling back to
// DefaultAccuracy for unknown pairs.
func (s *Service) Accuracy(ctx context.Context, id string) int {
	if pair, ok := s.GetAssetPair(ctx, id); ok {
		return pair.Accuracy
	}
	return DefaultAccuracy
}

func (s *Service) update(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Do not hit the dictionary owner more often than the refresh interval.
	if time.Since(s.lastUpdate) < s.refresh {
		return
	}
	s.lastUpdate = time.Now()

	all, err := s.repo.GetAll(ctx)
	if err != nil {
		s.log.Warning("update", "failed to refresh asset pairs, serving stale data: %v", err)
		return
	}

	pairs := make(map[string]Pair, len(all))
	for _, p := range all {
		pairs[strings.ToLower(p.ID)] = p
	}
	s.pairs = pairs
}

// StaticRepository serves a fixed pair list, typically loaded from config.
type StaticRepository struct {
	Pairs []Pair
}

func (r *StaticRepository) GetAll(ctx context.Context) ([]Pair, error) {
	return r.Pairs, nil
}
