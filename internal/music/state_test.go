package music

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRefiller struct {
	calls int
	track Track
	err   error
}

func (r *stubRefiller) Refill(_ context.Context, category string) (Track, error) {
	r.calls++
	if r.err != nil {
		return Track{}, r.err
	}
	t := r.track
	t.Query = category
	return t, nil
}

func titled(title string) Track {
	return Track{Title: title, Stream: StreamDescriptor{URL: "https://media.example/" + title}}
}

func TestGuildState_NextInOrder(t *testing.T) {
	s := NewGuildState(0.5, nil)
	ctx := context.Background()

	assert.Equal(t, 1, s.Enqueue(titled("A")))
	assert.Equal(t, 2, s.Enqueue(titled("B")))

	track, ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", track.Title)

	track, ok, err = s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "B", track.Title)

	_, ok, err = s.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, hasCurrent := s.Current()
	assert.False(t, hasCurrent)
}

func TestGuildState_RepeatReturnsCurrent(t *testing.T) {
	s := NewGuildState(0.5, nil)
	ctx := context.Background()

	s.Enqueue(titled("A"))
	s.Enqueue(titled("B"))
	_, _, err := s.Next(ctx)
	require.NoError(t, err)

	assert.True(t, s.ToggleRepeat())
	for range 3 {
		track, ok, err := s.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "A", track.Title)
	}
	assert.Equal(t, 1, s.QueueLen())

	assert.False(t, s.ToggleRepeat())
	track, ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "B", track.Title)
}

func TestGuildState_RepeatWithoutCurrentPops(t *testing.T) {
	s := NewGuildState(0.5, nil)
	s.SetRepeat(true)
	s.Enqueue(titled("A"))

	track, ok, err := s.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", track.Title)
	assert.Equal(t, 0, s.QueueLen())
}

func TestGuildState_VolumeClamped(t *testing.T) {
	s := NewGuildState(0.5, nil)

	assert.InDelta(t, 1.0, s.SetVolume(5), 1e-9)
	assert.InDelta(t, 0.0, s.SetVolume(-100), 1e-9)
	assert.InDelta(t, 0.25, s.SetVolume(0.25), 1e-9)

	assert.InDelta(t, 1.0, NewGuildState(3, nil).Volume(), 1e-9)
	assert.InDelta(t, 0.0, NewGuildState(-1, nil).Volume(), 1e-9)
}

func TestGuildState_SetLevel(t *testing.T) {
	s := NewGuildState(0.5, nil)

	v, err := s.SetLevel(80)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, v, 1e-9)

	for _, level := range []int{0, 101, -5} {
		_, err := s.SetLevel(level)
		assert.ErrorIs(t, err, ErrInvalidVolume)
	}
	assert.InDelta(t, 0.8, s.Volume(), 1e-9)
}

func TestGuildState_AutoplayOnlyWhenEnabled(t *testing.T) {
	refiller := &stubRefiller{track: titled("auto")}
	s := NewGuildState(0.5, refiller)
	ctx := context.Background()

	_, ok, err := s.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, refiller.calls)

	s.SetAutoplay("英文流行")
	track, ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "auto", track.Title)
	assert.Equal(t, 1, refiller.calls)

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "auto", current.Title)

	// queued tracks win over a refill
	s.Enqueue(titled("queued"))
	track, _, err = s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "queued", track.Title)
	assert.Equal(t, 1, refiller.calls)

	s.SetAutoplay("")
	_, ok, err = s.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, refiller.calls)
}

func TestGuildState_AutoplayRefillFailure(t *testing.T) {
	boom := errors.New("boom")
	s := NewGuildState(0.5, &stubRefiller{err: boom})
	s.SetAutoplay("中文流行")
	s.SetCurrent(titled("old"))

	_, ok, err := s.Next(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)

	_, hasCurrent := s.Current()
	assert.False(t, hasCurrent)
}

func TestGuildState_ClearKeepsCurrent(t *testing.T) {
	s := NewGuildState(0.5, nil)
	s.Enqueue(titled("A"))
	s.Enqueue(titled("B"))
	s.Enqueue(titled("C"))
	_, _, _ = s.Next(context.Background())

	assert.Equal(t, 2, s.Clear())
	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "A", current.Title)

	s.IncRetry()
	s.Reset()
	snap := s.Snapshot()
	assert.Nil(t, snap.Current)
	assert.Empty(t, snap.Queue)
	assert.Zero(t, snap.RetryCount)
}

func TestGuildState_RestoreSettings(t *testing.T) {
	s := NewGuildState(0.5, nil)
	s.Enqueue(titled("A"))

	s.SetRepeat(true)
	s.Restore(GuildSettings{Volume: 0.3, Category: "日文流行"})

	snap := s.Snapshot()
	assert.InDelta(t, 0.3, snap.Volume, 1e-9)
	assert.True(t, snap.Repeat, "restore leaves repeat alone")
	assert.True(t, snap.Autoplay)
	assert.Equal(t, "日文流行", snap.Category)
	assert.Len(t, snap.Queue, 1)
}
