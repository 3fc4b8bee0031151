// ABOUTME: Tests for the retry-storm dedupe cache
// ABOUTME: Covers duplicate detection, TTL expiry and size-bound eviction

package dedupe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckAndMark(t *testing.T) {
	c := New(time.Minute, 10)
	defer c.Close()

	assert.False(t, c.CheckAndMark("sid-1"), "first sighting is not a duplicate")
	assert.True(t, c.CheckAndMark("sid-1"))
	assert.False(t, c.CheckAndMark("sid-2"))
}

func TestExpiredKeyIsNotDuplicate(t *testing.T) {
	c := New(10*time.Millisecond, 10)
	defer c.Close()

	assert.False(t, c.CheckAndMark("sid-1"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, c.CheckAndMark("sid-1"), "expired key reads as new")
}

func TestEvictsOldestAtCapacity(t *testing.T) {
	c := New(time.Minute, 2)
	defer c.Close()

	c.CheckAndMark("a")
	c.CheckAndMark("b")
	c.CheckAndMark("c") // evicts a

	assert.False(t, c.CheckAndMark("a"), "evicted key reads as new")
	assert.True(t, c.CheckAndMark("c"), "still-resident key stays marked")
}

func TestCloseTwice(t *testing.T) {
	c := New(time.Minute, 10)
	c.Close()
	c.Close()
}
