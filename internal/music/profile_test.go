package music

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolutionProfile_Backoff(t *testing.T) {
	p := ResolutionProfile{BackoffBase: time.Second, BackoffCap: 10 * time.Second}

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for attempt, d := range want {
		assert.Equal(t, d, p.Backoff(attempt), "attempt %d", attempt)
	}
}

func TestResolutionProfile_BackoffUncapped(t *testing.T) {
	p := ResolutionProfile{BackoffBase: 500 * time.Millisecond}
	assert.Equal(t, 4*time.Second, p.Backoff(3))
	assert.Zero(t, ResolutionProfile{}.Backoff(2))
}

func TestDefaultProfiles(t *testing.T) {
	profiles := DefaultProfiles()
	assert.Len(t, profiles, 3)

	for i, p := range profiles {
		assert.NotEmpty(t, p.Name)
		assert.Equal(t, 3, p.MaxRetries)
		assert.NotEmpty(t, p.Headers["User-Agent"])
		if i > 0 {
			assert.Greater(t, p.Timeout, profiles[i-1].Timeout)
		}
	}
}
