package music

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hxnx/melodybot/internal/logger"
)

// FrameStream yields 20ms opus frames until io.EOF.
type FrameStream interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// Transcoder opens a frame stream for a descriptor at the given volume.
type Transcoder interface {
	Spawn(ctx context.Context, desc StreamDescriptor, volume float64) (FrameStream, error)
}

const (
	frameDuration    = 20 * time.Millisecond
	frameSendTimeout = time.Second
	maxDroppedFrames = 50
)

// Driver streams tracks to voice handles.
type Driver struct {
	transcoder    Transcoder
	frameInterval time.Duration
	log           *slog.Logger
}

func NewDriver(transcoder Transcoder) *Driver {
	return &Driver{
		transcoder:    transcoder,
		frameInterval: frameDuration,
		log:           logger.Component("music"),
	}
}

// Playback is one running track. onDone fires exactly once when it ends.
type Playback struct {
	ID        string
	Track     Track
	StartedAt time.Time

	cancel  context.CancelFunc
	done    chan struct{}
	frames  atomic.Int64
	stopped atomic.Bool

	mu     sync.Mutex
	paused bool
	resume chan struct{}
}

// Start spawns the transcoder and streams in the background. A spawn failure
// is returned directly and onDone is not called.
func (d *Driver) Start(ctx context.Context, handle VoiceHandle, track Track, volume float64, onDone func(*Playback, error)) (*Playback, error) {
	if handle == nil {
		return nil, ErrNotConnected
	}
	if !track.Stream.Complete() {
		return nil, fmt.Errorf("%w: track has no stream url", ErrTransientPlayback)
	}

	playCtx, cancel := context.WithCancel(ctx)
	stream, err := d.transcoder.Spawn(playCtx, track.Stream, volume)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrTransientPlayback, err)
	}

	pb := &Playback{
		ID:        uuid.NewString(),
		Track:     track,
		StartedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	log := d.log.With("playback_id", pb.ID, "title", track.Title)
	log.Info("playback started", "volume", volume)

	go func() {
		defer close(pb.done)
		defer cancel()

		err := d.pump(playCtx, pb, stream, handle)
		if closeErr := stream.Close(); err == nil && closeErr != nil && !pb.stopped.Load() {
			err = fmt.Errorf("%w: %v", ErrTransientPlayback, closeErr)
		}
		_ = handle.Speaking(false)

		switch {
		case pb.stopped.Load():
			err = nil
		case playCtx.Err() != nil:
			err = ErrPlaybackCancelled
		}

		log.Info("playback finished", "frames", pb.frames.Load(), "error", err)
		if onDone != nil {
			onDone(pb, err)
		}
	}()

	return pb, nil
}

func (d *Driver) pump(ctx context.Context, pb *Playback, stream FrameStream, handle VoiceHandle) error {
	var tick <-chan time.Time
	if d.frameInterval > 0 {
		ticker := time.NewTicker(d.frameInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	_ = handle.Speaking(true)
	dropped := 0

	for {
		if err := pb.waitWhilePaused(ctx, handle); err != nil {
			return nil
		}

		frame, err := stream.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrTransientPlayback, err)
		}
		if len(frame) == 0 {
			continue
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		}

		sendCtx, cancel := context.WithTimeout(ctx, frameSendTimeout)
		err = handle.SendOpus(sendCtx, frame)
		cancel()
		if err == nil {
			pb.frames.Add(1)
			dropped = 0
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if !handle.IsConnected() {
			return ErrDisconnected
		}
		dropped++
		if dropped >= maxDroppedFrames {
			return fmt.Errorf("%w: voice send stalled: %v", ErrTransientPlayback, err)
		}
	}
}

func (pb *Playback) waitWhilePaused(ctx context.Context, handle VoiceHandle) error {
	pb.mu.Lock()
	if !pb.paused {
		pb.mu.Unlock()
		return ctx.Err()
	}
	resume := pb.resume
	pb.mu.Unlock()

	_ = handle.Speaking(false)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-resume:
		_ = handle.Speaking(true)
		return nil
	}
}

// Pause reports false when already paused.
func (pb *Playback) Pause() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.paused {
		return false
	}
	pb.paused = true
	pb.resume = make(chan struct{})
	return true
}

// Resume reports false when not paused.
func (pb *Playback) Resume() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if !pb.paused {
		return false
	}
	pb.paused = false
	close(pb.resume)
	return true
}

func (pb *Playback) Paused() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.paused
}

// Stop ends the playback; onDone then reports a clean finish.
func (pb *Playback) Stop() {
	pb.stopped.Store(true)
	pb.cancel()
}

// Abort ends the playback like a cancellation.
func (pb *Playback) Abort() {
	pb.cancel()
}

// Done is closed after onDone returned.
func (pb *Playback) Done() <-chan struct{} {
	return pb.done
}

func (pb *Playback) Position() time.Duration {
	return time.Duration(pb.frames.Load()) * frameDuration
}
