package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClockAdvanceFiresWaiters(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	ch := c.After(10 * time.Minute)
	select {
	case <-ch:
		t.Fatal("timer fired before advance")
	default:
	}

	c.Advance(5 * time.Minute)
	select {
	case <-ch:
		t.Fatal("timer fired early")
	default:
	}

	c.Advance(5 * time.Minute)
	select {
	case at := <-ch:
		assert.Equal(t, start.Add(10*time.Minute), at)
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	assert.Equal(t, start.Add(10*time.Minute), c.Now())
}

func TestManualClockZeroDurationFiresImmediately(t *testing.T) {
	c := NewManualClock(time.Now())
	select {
	case <-c.After(0):
	case <-time.After(time.Second):
		t.Fatal("zero-duration timer never fired")
	}
}
