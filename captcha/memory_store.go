package captcha

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps challenges in process memory, suitable for a
// single instance deployment
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
}

// NewMemoryStore returns an empty in memory challenge store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]*Challenge),
	}
}

func (s *MemoryStore) Put(_ context.Context, challenge *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.challenges[challenge.ID] = challenge
	return nil
}

func (s *MemoryStore) Take(_ context.Context, id string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[id]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	delete(s.challenges, id)
	if time.Now().After(challenge.ExpiresAt) {
		return nil, ErrChallengeNotFound
	}
	return challenge, nil
}

// sweepLocked drops expired entries so abandoned challenges do not
// accumulate, callers must hold the mutex
func (s *MemoryStore) sweepLocked() {
	now := time.Now()
	for id, challenge := range s.challenges {
		if now.After(challenge.ExpiresAt) {
			delete(s.challenges, id)
		}
	}
}
