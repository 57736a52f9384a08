package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
)

// pinAllocateAttempts bounds collision retries before giving up. With
// a million possible PINs this only trips when nearly all are in use.
const pinAllocateAttempts = 100

// PinRegistry maps 6-digit numeric PINs to active session ids. It has
// its own lock so PIN issuance never serializes unrelated sessions.
// PINs are scoped to active sessions only: releasing one at session
// end makes it immediately reusable.
type PinRegistry struct {
	mu      sync.RWMutex
	byPin   map[string]uint
	byOwner map[uint]string
}

func NewPinRegistry() *PinRegistry {
	return &PinRegistry{
		byPin:   make(map[string]uint),
		byOwner: make(map[uint]string),
	}
}

// Allocate binds a fresh PIN to the session and returns it.
func (r *PinRegistry) Allocate(sessionID uint) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < pinAllocateAttempts; attempt++ {
		pin, err := randomPin()
		if err != nil {
			return "", fmt.Errorf("generate pin: %w", err)
		}
		if _, taken := r.byPin[pin]; taken {
			continue
		}
		if old, ok := r.byOwner[sessionID]; ok {
			delete(r.byPin, old)
		}
		r.byPin[pin] = sessionID
		r.byOwner[sessionID] = pin
		return pin, nil
	}
	return "", conflictf("no free pin available")
}

// Bind re-registers a known PIN, used to rebuild the registry from
// persisted active sessions after a restart.
func (r *PinRegistry) Bind(pin string, sessionID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, taken := r.byPin[pin]; taken && owner != sessionID {
		return conflictf("pin %s already bound to session %d", pin, owner)
	}
	r.byPin[pin] = sessionID
	r.byOwner[sessionID] = pin
	return nil
}

// Resolve maps a PIN to its active session.
func (r *PinRegistry) Resolve(pin string) (uint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessionID, ok := r.byPin[pin]
	if !ok {
		return 0, notFoundf("unknown pin %q", pin)
	}
	return sessionID, nil
}

// Release frees the session's PIN for reuse. Releasing a session that
// holds no PIN is a no-op.
func (r *PinRegistry) Release(sessionID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pin, ok := r.byOwner[sessionID]; ok {
		delete(r.byPin, pin)
		delete(r.byOwner, sessionID)
	}
}

func randomPin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
