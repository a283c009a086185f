package clockx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_AdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewFake(start)

	assert.Equal(t, start, c.Now())

	c.Advance(2500 * time.Millisecond)
	assert.Equal(t, start.Add(2500*time.Millisecond), c.Now())

	c.Set(start.Add(-time.Hour))
	assert.Equal(t, start.Add(-time.Hour), c.Now())
}

func TestReal_IsCloseToTimeNow(t *testing.T) {
	got := Real().Now()
	assert.WithinDuration(t, time.Now(), got, time.Second)
}
