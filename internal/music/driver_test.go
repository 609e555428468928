package music

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneResult struct {
	pb  *Playback
	err error
}

func newTestDriver(next func(call int) (*fakeStream, error)) (*Driver, *fakeTranscoder) {
	tc := &fakeTranscoder{next: next}
	d := NewDriver(tc)
	d.frameInterval = 0
	return d, tc
}

func collectDone() (func(*Playback, error), <-chan doneResult) {
	ch := make(chan doneResult, 4)
	return func(pb *Playback, err error) { ch <- doneResult{pb: pb, err: err} }, ch
}

func waitDone(t *testing.T, ch <-chan doneResult) doneResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not finish")
		return doneResult{}
	}
}

func TestDriver_PlaysToEnd(t *testing.T) {
	d, tc := newTestDriver(func(int) (*fakeStream, error) {
		return &fakeStream{frames: 25}, nil
	})
	handle := newFakeHandle("voice-1")
	onDone, ch := collectDone()

	pb, err := d.Start(context.Background(), handle, titled("A"), 0.4, onDone)
	require.NoError(t, err)
	assert.NotEmpty(t, pb.ID)

	res := waitDone(t, ch)
	assert.Same(t, pb, res.pb)
	assert.NoError(t, res.err)
	assert.Equal(t, 25, handle.Frames())
	assert.Equal(t, 500*time.Millisecond, pb.Position())
	assert.Equal(t, []spawnCall{{URL: "https://media.example/A", Volume: 0.4}}, tc.Calls())
}

func TestDriver_SpawnFailureIsReturned(t *testing.T) {
	d, _ := newTestDriver(func(int) (*fakeStream, error) {
		return nil, errors.New("ffmpeg not found")
	})
	called := false

	_, err := d.Start(context.Background(), newFakeHandle("voice-1"), titled("A"), 0.5, func(*Playback, error) {
		called = true
	})
	assert.ErrorIs(t, err, ErrTransientPlayback)
	assert.False(t, called)
}

func TestDriver_RejectsIncompleteTrack(t *testing.T) {
	d, tc := newTestDriver(func(int) (*fakeStream, error) { return &fakeStream{}, nil })

	_, err := d.Start(context.Background(), newFakeHandle("voice-1"), Track{Title: "x"}, 0.5, nil)
	assert.ErrorIs(t, err, ErrTransientPlayback)
	assert.Empty(t, tc.Calls())

	_, err = d.Start(context.Background(), nil, titled("A"), 0.5, nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestDriver_StreamErrorIsTransient(t *testing.T) {
	d, _ := newTestDriver(func(int) (*fakeStream, error) {
		return &fakeStream{frames: 3, endErr: errors.New("403 forbidden")}, nil
	})
	onDone, ch := collectDone()

	_, err := d.Start(context.Background(), newFakeHandle("voice-1"), titled("A"), 0.5, onDone)
	require.NoError(t, err)

	res := waitDone(t, ch)
	assert.ErrorIs(t, res.err, ErrTransientPlayback)
}

func TestDriver_StopReportsCleanFinish(t *testing.T) {
	d, _ := newTestDriver(func(int) (*fakeStream, error) {
		return &fakeStream{block: true}, nil
	})
	onDone, ch := collectDone()

	pb, err := d.Start(context.Background(), newFakeHandle("voice-1"), titled("A"), 0.5, onDone)
	require.NoError(t, err)

	pb.Stop()
	res := waitDone(t, ch)
	assert.NoError(t, res.err)
	<-pb.Done()
}

func TestDriver_AbortReportsCancelled(t *testing.T) {
	d, _ := newTestDriver(func(int) (*fakeStream, error) {
		return &fakeStream{block: true}, nil
	})
	onDone, ch := collectDone()

	pb, err := d.Start(context.Background(), newFakeHandle("voice-1"), titled("A"), 0.5, onDone)
	require.NoError(t, err)

	pb.Abort()
	assert.ErrorIs(t, waitDone(t, ch).err, ErrPlaybackCancelled)
}

func TestDriver_ParentCancelReportsCancelled(t *testing.T) {
	d, _ := newTestDriver(func(int) (*fakeStream, error) {
		return &fakeStream{block: true}, nil
	})
	onDone, ch := collectDone()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := d.Start(ctx, newFakeHandle("voice-1"), titled("A"), 0.5, onDone)
	require.NoError(t, err)

	cancel()
	assert.ErrorIs(t, waitDone(t, ch).err, ErrPlaybackCancelled)
}

func TestDriver_DroppedHandleReportsDisconnect(t *testing.T) {
	d, _ := newTestDriver(func(int) (*fakeStream, error) {
		return &fakeStream{frames: 1 << 20}, nil
	})
	d.frameInterval = time.Millisecond
	handle := newFakeHandle("voice-1")
	onDone, ch := collectDone()

	_, err := d.Start(context.Background(), handle, titled("A"), 0.5, onDone)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return handle.Frames() > 0 }, time.Second, time.Millisecond)
	handle.Drop()

	assert.ErrorIs(t, waitDone(t, ch).err, ErrDisconnected)
}

func TestPlayback_PauseResume(t *testing.T) {
	d, _ := newTestDriver(func(int) (*fakeStream, error) {
		return &fakeStream{frames: 1 << 20}, nil
	})
	d.frameInterval = time.Millisecond
	handle := newFakeHandle("voice-1")
	onDone, ch := collectDone()

	pb, err := d.Start(context.Background(), handle, titled("A"), 0.5, onDone)
	require.NoError(t, err)

	require.True(t, pb.Pause())
	assert.False(t, pb.Pause())
	assert.True(t, pb.Paused())

	// at most one in-flight frame lands after the pause
	time.Sleep(20 * time.Millisecond)
	frozen := handle.Frames()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, frozen, handle.Frames())

	require.True(t, pb.Resume())
	assert.False(t, pb.Resume())
	require.Eventually(t, func() bool { return handle.Frames() > frozen }, time.Second, time.Millisecond)

	pb.Stop()
	assert.NoError(t, waitDone(t, ch).err)
}
