// ABOUTME: Unit tests for the nonce dedupe cache.
// ABOUTME: Covers duplicate detection, TTL expiry, and size-bounded eviction.

package dedupe

import (
	"fmt"
	"testing"
	"time"
)

func TestCache_SeenMarksAndDetects(t *testing.T) {
	c := New(time.Minute, 100)
	defer c.Close()

	if c.Seen("nonce-1") {
		t.Error("first Seen() = true, want false")
	}
	if !c.Seen("nonce-1") {
		t.Error("second Seen() = false, want true")
	}
	if c.Seen("nonce-2") {
		t.Error("Seen() for distinct nonce = true, want false")
	}
}

func TestCache_ExpiredNonceIsFresh(t *testing.T) {
	c := New(10*time.Millisecond, 100)
	defer c.Close()

	if c.Seen("nonce-1") {
		t.Fatal("first Seen() = true")
	}
	time.Sleep(25 * time.Millisecond)
	if c.Seen("nonce-1") {
		t.Error("Seen() after TTL = true, want false")
	}
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	c := New(time.Minute, 3)
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.Seen(fmt.Sprintf("nonce-%d", i))
	}
	// Adding a fourth evicts nonce-0.
	c.Seen("nonce-3")

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if c.Seen("nonce-0") {
		t.Error("evicted nonce still reported as seen")
	}
	if !c.Seen("nonce-3") {
		t.Error("retained nonce not reported as seen")
	}
}

func TestCache_Sweep(t *testing.T) {
	c := New(5*time.Millisecond, 100)
	defer c.Close()

	c.Seen("a")
	c.Seen("b")
	time.Sleep(10 * time.Millisecond)
	c.sweep()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after sweep, want 0", c.Len())
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New(time.Minute, 10)
	c.Close()
	c.Close()
}
