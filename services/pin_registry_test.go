package services

import (
	"sync"
	"testing"
)

func TestAllocateProducesSixDigitPins(t *testing.T) {
	registry := NewPinRegistry()

	for i := uint(1); i <= 50; i++ {
		pin, err := registry.Allocate(i)
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		if len(pin) != 6 {
			t.Fatalf("pin %q is not 6 characters", pin)
		}
		for _, r := range pin {
			if r < '0' || r > '9' {
				t.Fatalf("pin %q contains non-digit", pin)
			}
		}

		resolved, err := registry.Resolve(pin)
		if err != nil {
			t.Fatalf("Resolve(%s) failed: %v", pin, err)
		}
		if resolved != i {
			t.Errorf("Resolve(%s) = %d, want %d", pin, resolved, i)
		}
	}
}

func TestConcurrentAllocationsAreUnique(t *testing.T) {
	registry := NewPinRegistry()

	const n = 100
	pins := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pin, err := registry.Allocate(uint(i + 1))
			if err != nil {
				t.Errorf("Allocate failed: %v", err)
				return
			}
			pins[i] = pin
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, pin := range pins {
		if pin == "" {
			continue
		}
		if seen[pin] {
			t.Errorf("pin %s allocated twice", pin)
		}
		seen[pin] = true
	}
}

func TestReleaseFreesPinForReuse(t *testing.T) {
	registry := NewPinRegistry()

	pin, err := registry.Allocate(1)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	registry.Release(1)

	if _, err := registry.Resolve(pin); KindOf(err) != KindNotFound {
		t.Errorf("released pin still resolves: %v", err)
	}

	// The exact same PIN must be bindable to a new session.
	if err := registry.Bind(pin, 2); err != nil {
		t.Fatalf("Bind of released pin failed: %v", err)
	}
	resolved, err := registry.Resolve(pin)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved != 2 {
		t.Errorf("Resolve = %d, want 2", resolved)
	}
}

func TestReleaseUnknownSessionIsNoop(t *testing.T) {
	registry := NewPinRegistry()
	registry.Release(99) // must not panic or disturb anything

	if _, err := registry.Allocate(1); err != nil {
		t.Fatalf("Allocate after stray release failed: %v", err)
	}
}

func TestBindRejectsTakenPin(t *testing.T) {
	registry := NewPinRegistry()

	if err := registry.Bind("123456", 1); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	err := registry.Bind("123456", 2)
	wantKind(t, err, KindConflict)

	// Rebinding to the same owner stays fine.
	if err := registry.Bind("123456", 1); err != nil {
		t.Errorf("idempotent Bind failed: %v", err)
	}
}
