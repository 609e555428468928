package music

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVoiceOptions() Options {
	opts := DefaultOptions()
	opts.MaxConnectRetries = 3
	opts.ConnectTimeout = time.Second
	opts.ConnectRetryDelay = 2 * time.Second
	opts.ConnectRetryDelayCap = 3 * time.Second
	opts.MaxReconnectAttempts = 1
	return opts
}

func newTestConnection(transport VoiceTransport, opts Options) (*Connection, *[]time.Duration) {
	c := NewConnection("g1", transport, opts)
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return c, &slept
}

func TestConnection_EnsureRetriesUntilConnected(t *testing.T) {
	transport := &fakeTransport{errs: []error{errDialTimeout, errDialTimeout}}
	c, slept := newTestConnection(transport, testVoiceOptions())

	handle, err := c.Ensure(context.Background(), "voice-1")
	require.NoError(t, err)
	require.NotNil(t, handle)

	assert.Equal(t, 3, transport.Dials())
	assert.Equal(t, []time.Duration{2 * time.Second, 3 * time.Second}, *slept)

	snap := c.Snapshot()
	assert.Equal(t, ConnConnected, snap.State)
	assert.Equal(t, "voice-1", snap.ChannelID)
	assert.Zero(t, snap.ReconnectAttempts)
	assert.True(t, c.Healthy())
	assert.Same(t, handle, c.Handle())
}

func TestConnection_EnsureGivesUpAfterMaxRetries(t *testing.T) {
	transport := &fakeTransport{failAll: errDialTimeout}
	c, _ := newTestConnection(transport, testVoiceOptions())

	_, err := c.Ensure(context.Background(), "voice-1")
	assert.ErrorIs(t, err, ErrConnectionFailure)
	assert.Equal(t, 3, transport.Dials())
	assert.Equal(t, ConnDisconnected, c.State())
	assert.Nil(t, c.Handle())
}

func TestConnection_EnsureReusesHealthyHandle(t *testing.T) {
	transport := &fakeTransport{}
	c, _ := newTestConnection(transport, testVoiceOptions())

	first, err := c.Ensure(context.Background(), "voice-1")
	require.NoError(t, err)
	second, err := c.Ensure(context.Background(), "voice-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, transport.Dials())
}

func TestConnection_EnsureMovesBetweenChannels(t *testing.T) {
	transport := &fakeTransport{}
	c, _ := newTestConnection(transport, testVoiceOptions())

	first, err := c.Ensure(context.Background(), "voice-1")
	require.NoError(t, err)
	moved, err := c.Ensure(context.Background(), "voice-2")
	require.NoError(t, err)

	assert.Same(t, first, moved)
	assert.Equal(t, "voice-2", moved.ChannelID())
	assert.Equal(t, "voice-2", c.Snapshot().ChannelID)
	assert.Equal(t, 1, transport.Dials())
}

func TestConnection_FailedMoveReconnects(t *testing.T) {
	transport := &fakeTransport{}
	c, _ := newTestConnection(transport, testVoiceOptions())

	_, err := c.Ensure(context.Background(), "voice-1")
	require.NoError(t, err)
	old := transport.Last()
	old.moveErr = errors.New("move rejected")

	handle, err := c.Ensure(context.Background(), "voice-2")
	require.NoError(t, err)

	assert.NotSame(t, old, handle)
	assert.Equal(t, 1, old.disconnects)
	assert.Equal(t, 2, transport.Dials())
	assert.Equal(t, "voice-2", handle.ChannelID())
}

func TestConnection_DeadHandleIsReplaced(t *testing.T) {
	transport := &fakeTransport{}
	c, _ := newTestConnection(transport, testVoiceOptions())

	_, err := c.Ensure(context.Background(), "voice-1")
	require.NoError(t, err)
	transport.Last().Drop()
	assert.False(t, c.Healthy())

	_, err = c.Ensure(context.Background(), "voice-1")
	require.NoError(t, err)
	assert.Equal(t, 2, transport.Dials())
}

func TestConnection_EnsureRequiresChannel(t *testing.T) {
	c, _ := newTestConnection(&fakeTransport{}, testVoiceOptions())
	_, err := c.Ensure(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoVoiceChannel)
}

func TestConnection_ReconnectBudget(t *testing.T) {
	transport := &fakeTransport{}
	opts := testVoiceOptions()
	opts.MaxReconnectAttempts = 2
	c, _ := newTestConnection(transport, opts)
	clock := newFakeClock()
	c.now = clock.Now

	_, err := c.Ensure(context.Background(), "voice-1")
	require.NoError(t, err)

	c.MarkDisconnected()
	snap := c.Snapshot()
	assert.Equal(t, ConnUnstable, snap.State)
	assert.Equal(t, "voice-1", snap.ChannelID)
	assert.Equal(t, clock.Now(), snap.LastDisconnectAt)
	assert.Nil(t, c.Handle())

	transport.SetFailAll(errDialTimeout)
	_, err = c.Reconnect(context.Background())
	assert.ErrorIs(t, err, ErrConnectionFailure)
	assert.Equal(t, 1, c.Snapshot().ReconnectAttempts)
	assert.False(t, c.Exhausted())

	transport.SetFailAll(nil)
	_, err = c.Reconnect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, c.Snapshot().ReconnectAttempts)
	assert.Equal(t, ConnConnected, c.State())
}

func TestConnection_ReconnectExhausted(t *testing.T) {
	transport := &fakeTransport{}
	c, _ := newTestConnection(transport, testVoiceOptions())

	_, err := c.Ensure(context.Background(), "voice-1")
	require.NoError(t, err)
	c.MarkDisconnected()

	transport.SetFailAll(errDialTimeout)
	_, err = c.Reconnect(context.Background())
	require.Error(t, err)
	assert.True(t, c.Exhausted())

	dials := transport.Dials()
	_, err = c.Reconnect(context.Background())
	assert.ErrorIs(t, err, ErrConnectionFailure)
	assert.Equal(t, dials, transport.Dials())

	c.Suspend()
	assert.True(t, c.Snapshot().Suspended)

	// an explicit join lifts the suspension and the budget
	transport.SetFailAll(nil)
	_, err = c.Ensure(context.Background(), "voice-1")
	require.NoError(t, err)
	snap := c.Snapshot()
	assert.False(t, snap.Suspended)
	assert.Zero(t, snap.ReconnectAttempts)
}

func TestConnection_Reset(t *testing.T) {
	transport := &fakeTransport{}
	c, _ := newTestConnection(transport, testVoiceOptions())

	_, err := c.Ensure(context.Background(), "voice-1")
	require.NoError(t, err)
	c.Reset()

	snap := c.Snapshot()
	assert.Equal(t, ConnDisconnected, snap.State)
	assert.Empty(t, snap.ChannelID)
	assert.Equal(t, 1, transport.Last().disconnects)
}
