// Package testutil provides in-memory doubles for service and handler tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"inkfeed/internal/models"
	"inkfeed/internal/repository"
)

type interactionKey struct {
	kind   models.InteractionKind
	userID uint
	postID string
}

// InteractionStore is an in-memory repository.InteractionStore. A per-post
// mutex plays the role of the row lock; Delay widens the critical section so
// races surface in tests.
type InteractionStore struct {
	Delay time.Duration
	// FailFirst makes the first n calls return repository.ErrConflict.
	FailFirst int

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	counts map[string]map[models.InteractionKind]int
	rows   map[interactionKey]struct{}
	calls  int
}

// NewInteractionStore creates a store holding the given posts with zero counts.
func NewInteractionStore(postIDs ...string) *InteractionStore {
	s := &InteractionStore{
		locks:  map[string]*sync.Mutex{},
		counts: map[string]map[models.InteractionKind]int{},
		rows:   map[interactionKey]struct{}{},
	}
	for _, id := range postIDs {
		s.locks[id] = &sync.Mutex{}
		s.counts[id] = map[models.InteractionKind]int{}
	}
	return s
}

func (s *InteractionStore) Toggle(ctx context.Context, kind models.InteractionKind, userID uint, postID string) (models.ToggleResult, error) {
	s.mu.Lock()
	s.calls++
	failing := s.calls <= s.FailFirst
	lock, ok := s.locks[postID]
	s.mu.Unlock()

	if failing {
		return models.ToggleResult{}, repository.ErrConflict
	}
	if !ok {
		return models.ToggleResult{}, repository.ErrPostNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	count := s.counts[postID][kind]
	key := interactionKey{kind: kind, userID: userID, postID: postID}
	_, exists := s.rows[key]
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return models.ToggleResult{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if exists {
		delete(s.rows, key)
		count = max(count-1, 0)
	} else {
		s.rows[key] = struct{}{}
		count++
	}
	s.counts[postID][kind] = count
	return models.ToggleResult{Active: !exists, Count: count}, nil
}

// Count returns the stored counter.
func (s *InteractionStore) Count(postID string, kind models.InteractionKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[postID][kind]
}

// Rows returns the number of join rows for postID and kind.
func (s *InteractionStore) Rows(postID string, kind models.InteractionKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.rows {
		if k.postID == postID && k.kind == kind {
			n++
		}
	}
	return n
}

// Calls returns the number of Toggle invocations.
func (s *InteractionStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
