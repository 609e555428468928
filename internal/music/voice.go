package music

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hxnx/melodybot/internal/logger"
)

// VoiceTransport opens voice connections.
type VoiceTransport interface {
	Connect(ctx context.Context, guildID, channelID string) (VoiceHandle, error)
}

// VoiceHandle is one live voice connection.
type VoiceHandle interface {
	ChannelID() string
	IsConnected() bool
	Move(ctx context.Context, channelID string) error
	SendOpus(ctx context.Context, frame []byte) error
	Speaking(speaking bool) error
	Disconnect() error
}

type ConnectionSnapshot struct {
	ChannelID         string
	State             ConnState
	ReconnectAttempts int
	LastDisconnectAt  time.Time
	Suspended         bool
}

// Connection tracks the voice connection of one guild. Mutating calls are
// made by the owning Player with its operation lock held.
type Connection struct {
	guildID   string
	transport VoiceTransport

	maxRetries    int
	timeout       time.Duration
	retryDelay    time.Duration
	retryDelayCap time.Duration
	maxReconnect  int

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
	log   *slog.Logger

	mu                sync.Mutex
	handle            VoiceHandle
	channelID         string
	state             ConnState
	reconnectAttempts int
	lastDisconnectAt  time.Time
	suspended         bool
}

func NewConnection(guildID string, transport VoiceTransport, opts Options) *Connection {
	return &Connection{
		guildID:       guildID,
		transport:     transport,
		maxRetries:    max(opts.MaxConnectRetries, 1),
		timeout:       opts.ConnectTimeout,
		retryDelay:    opts.ConnectRetryDelay,
		retryDelayCap: opts.ConnectRetryDelayCap,
		maxReconnect:  max(opts.MaxReconnectAttempts, 0),
		sleep:         sleepContext,
		now:           time.Now,
		log:           logger.Component("voice").With("guild_id", guildID),
		state:         ConnDisconnected,
	}
}

// Ensure returns a connected handle in channelID, reusing, moving or
// reconnecting as needed.
func (c *Connection) Ensure(ctx context.Context, channelID string) (VoiceHandle, error) {
	if channelID == "" {
		return nil, ErrNoVoiceChannel
	}

	c.mu.Lock()
	handle := c.handle
	current := c.channelID
	c.suspended = false
	c.mu.Unlock()

	if handle != nil && handle.IsConnected() {
		if current == channelID {
			c.setState(ConnConnected)
			return handle, nil
		}

		c.setState(ConnMoving)
		err := c.move(ctx, handle, channelID)
		if err == nil {
			c.adopt(handle, channelID)
			c.log.Info("moved voice connection", "channel_id", channelID)
			return handle, nil
		}
		c.log.Warn("move failed, reconnecting", "channel_id", channelID, "error", err)
	}

	if handle != nil {
		c.Teardown()
	}
	return c.connect(ctx, channelID)
}

func (c *Connection) move(ctx context.Context, handle VoiceHandle, channelID string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return handle.Move(ctx, channelID)
}

func (c *Connection) connect(ctx context.Context, channelID string) (VoiceHandle, error) {
	c.mu.Lock()
	c.state = ConnConnecting
	c.channelID = channelID
	c.mu.Unlock()

	delay := c.retryDelay
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		handle, err := c.dial(ctx, channelID)
		if err == nil {
			c.adopt(handle, channelID)
			c.log.Info("voice connected", "channel_id", channelID, "attempt", attempt)
			return handle, nil
		}
		lastErr = err
		c.log.Warn("voice connect attempt failed",
			"channel_id", channelID,
			"attempt", attempt,
			"max_attempts", c.maxRetries,
			"error", err)

		if ctx.Err() != nil {
			break
		}
		if attempt < c.maxRetries {
			if err := c.sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
			delay *= 2
			if c.retryDelayCap > 0 && delay > c.retryDelayCap {
				delay = c.retryDelayCap
			}
		}
	}

	c.setState(ConnDisconnected)
	return nil, fmt.Errorf("%w: %v", ErrConnectionFailure, lastErr)
}

func (c *Connection) dial(ctx context.Context, channelID string) (VoiceHandle, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	handle, err := c.transport.Connect(ctx, c.guildID, channelID)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, errors.New("transport returned no handle")
	}
	return handle, nil
}

func (c *Connection) adopt(handle VoiceHandle, channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = handle
	c.channelID = channelID
	c.state = ConnConnected
	c.reconnectAttempts = 0
	c.suspended = false
}

// Teardown disconnects and forgets the handle.
func (c *Connection) Teardown() {
	c.mu.Lock()
	handle := c.handle
	c.handle = nil
	c.state = ConnDisconnected
	c.mu.Unlock()

	if handle != nil {
		if err := handle.Disconnect(); err != nil {
			c.log.Debug("voice disconnect returned error", "error", err)
		}
	}
}

// Reset tears down and clears all bookkeeping.
func (c *Connection) Reset() {
	c.Teardown()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelID = ""
	c.reconnectAttempts = 0
	c.lastDisconnectAt = time.Time{}
	c.suspended = false
}

// MarkDisconnected records an unexpected drop. The channel is kept so
// Reconnect knows where to go.
func (c *Connection) MarkDisconnected() {
	c.mu.Lock()
	handle := c.handle
	c.handle = nil
	c.state = ConnUnstable
	c.lastDisconnectAt = c.now()
	c.mu.Unlock()

	if handle != nil {
		_ = handle.Disconnect()
	}
}

// Reconnect spends one automatic reconnect attempt.
func (c *Connection) Reconnect(ctx context.Context) (VoiceHandle, error) {
	c.mu.Lock()
	if c.reconnectAttempts >= c.maxReconnect {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: reconnect attempts exhausted", ErrConnectionFailure)
	}
	c.reconnectAttempts++
	attempt := c.reconnectAttempts
	channelID := c.channelID
	c.state = ConnConnecting
	c.mu.Unlock()

	if channelID == "" {
		c.setState(ConnDisconnected)
		return nil, ErrNotConnected
	}

	handle, err := c.dial(ctx, channelID)
	if err != nil {
		c.setState(ConnUnstable)
		c.log.Warn("reconnect attempt failed",
			"channel_id", channelID,
			"attempt", attempt,
			"max_attempts", c.maxReconnect,
			"error", err)
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailure, err)
	}

	c.adopt(handle, channelID)
	c.log.Info("voice reconnected", "channel_id", channelID, "attempt", attempt)
	return handle, nil
}

func (c *Connection) ResetAttempts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnectAttempts = 0
}

func (c *Connection) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnectAttempts >= c.maxReconnect
}

// Suspend stops automatic reconnects until the next Ensure.
func (c *Connection) Suspend() {
	c.Teardown()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended = true
}

func (c *Connection) Handle() VoiceHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ConnConnected {
		return nil
	}
	return c.handle
}

// Healthy reports whether the handle is present and still connected.
func (c *Connection) Healthy() bool {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()
	return handle != nil && handle.IsConnected()
}

func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) Snapshot() ConnectionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionSnapshot{
		ChannelID:         c.channelID,
		State:             c.state,
		ReconnectAttempts: c.reconnectAttempts,
		LastDisconnectAt:  c.lastDisconnectAt,
		Suspended:         c.suspended,
	}
}

func (c *Connection) setState(state ConnState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}
