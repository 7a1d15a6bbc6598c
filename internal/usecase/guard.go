package usecase

import (
	"errors"
	"sync"
)

// ErrRunInProgress is returned when a mutating run is already executing.
var ErrRunInProgress = errors.New("classification run already in progress")

// RunGuard serialises mark and reset requests without queueing them.
type RunGuard struct {
	mu sync.Mutex
}

// Do runs fn unless another call holds the guard.
func (g *RunGuard) Do(fn func() error) error {
	if !g.mu.TryLock() {
		return ErrRunInProgress
	}
	defer g.mu.Unlock()
	return fn()
}
