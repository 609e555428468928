package music

import (
	"context"
	"math"
	"sync"
)

// Refiller supplies a track when the queue runs dry and autoplay is on.
type Refiller interface {
	Refill(ctx context.Context, category string) (Track, error)
}

// GuildState is the queue and flags of one guild. Compound operations are
// serialized by the owning Player; the internal mutex only keeps snapshots
// consistent for readers such as status.
type GuildState struct {
	mu         sync.Mutex
	queue      []Track
	current    *Track
	repeat     bool
	volume     float64
	autoplay   bool
	category   string
	retryCount int

	refiller Refiller
}

type StateSnapshot struct {
	Queue      []Track
	Current    *Track
	Repeat     bool
	Volume     float64
	Autoplay   bool
	Category   string
	RetryCount int
}

func NewGuildState(volume float64, refiller Refiller) *GuildState {
	return &GuildState{
		volume:   clampVolume(volume),
		refiller: refiller,
	}
}

func (s *GuildState) Enqueue(track Track) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, track)
	return len(s.queue)
}

// Next picks the track to play after the current one. ok is false when
// nothing is left; err reports a failed autoplay refill in that case.
func (s *GuildState) Next(ctx context.Context) (track Track, ok bool, err error) {
	s.mu.Lock()
	if s.repeat && s.current != nil {
		t := *s.current
		s.mu.Unlock()
		return t, true, nil
	}
	if t, popped := s.popLocked(); popped {
		s.mu.Unlock()
		return t, true, nil
	}
	refill := s.autoplay && s.category != "" && s.refiller != nil
	category := s.category
	if !refill {
		s.current = nil
		s.mu.Unlock()
		return Track{}, false, nil
	}
	s.mu.Unlock()

	refilled, err := s.refiller.Refill(ctx, category)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.current = nil
		return Track{}, false, err
	}
	s.queue = append(s.queue, refilled)
	t, _ := s.popLocked()
	return t, true, nil
}

func (s *GuildState) popLocked() (Track, bool) {
	if len(s.queue) == 0 {
		return Track{}, false
	}
	t := s.queue[0]
	s.queue[0] = Track{}
	s.queue = s.queue[1:]
	s.current = &t
	return t, true
}

// Clear empties the queue; the current track is left alone.
func (s *GuildState) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.queue)
	s.queue = nil
	return n
}

// Reset drops the queue and the current track.
func (s *GuildState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	s.current = nil
	s.retryCount = 0
}

func (s *GuildState) Current() (Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Track{}, false
	}
	return *s.current, true
}

func (s *GuildState) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

func (s *GuildState) SetCurrent(track Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &track
}

func (s *GuildState) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// SetVolume adds delta and clamps the result to [0,1].
func (s *GuildState) SetVolume(delta float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = clampVolume(s.volume + delta)
	return s.volume
}

// SetLevel sets the volume from a 1..100 percentage.
func (s *GuildState) SetLevel(level int) (float64, error) {
	if level < 1 || level > 100 {
		return 0, ErrInvalidVolume
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = clampVolume(float64(level) / 100)
	return s.volume, nil
}

func (s *GuildState) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *GuildState) ToggleRepeat() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeat = !s.repeat
	return s.repeat
}

func (s *GuildState) SetRepeat(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeat = on
}

// SetAutoplay enables autoplay for category, or disables it when category
// is empty.
func (s *GuildState) SetAutoplay(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.category = category
	s.autoplay = category != ""
}

// Restore applies persisted settings without touching the queue.
func (s *GuildState) Restore(settings GuildSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = clampVolume(settings.Volume)
	s.category = settings.Category
	s.autoplay = settings.Category != ""
}

func (s *GuildState) IncRetry() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryCount++
	return s.retryCount
}

func (s *GuildState) ResetRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryCount = 0
}

func (s *GuildState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StateSnapshot{
		Queue:      append([]Track(nil), s.queue...),
		Repeat:     s.repeat,
		Volume:     s.volume,
		Autoplay:   s.autoplay,
		Category:   s.category,
		RetryCount: s.retryCount,
	}
	if s.current != nil {
		t := *s.current
		snap.Current = &t
	}
	return snap
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}
