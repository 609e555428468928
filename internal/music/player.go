package music

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hxnx/melodybot/internal/logger"
)

const (
	notifyTimeout   = 10 * time.Second
	settingsTimeout = 2 * time.Second
)

// PlayerDeps are the collaborators shared by every guild.
type PlayerDeps struct {
	Resolver  TrackResolver
	Refiller  *AutoplayRefiller
	Transport VoiceTransport
	Driver    *Driver
	Notifier  Notifier
	Settings  SettingsStore
}

// Player owns one guild's queue, connection and playback. ops serializes
// every operation that touches them; mu guards the lifetime context and the
// fields read by Status.
type Player struct {
	guildID string
	opts    Options
	deps    PlayerDeps

	state *GuildState
	conn  *Connection

	ops sync.Mutex

	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	gen          uint64
	playback     *Playback
	status       PlaybackStatus
	textChannel  string
	reconnecting bool

	sleep func(ctx context.Context, d time.Duration) error
	log   *slog.Logger
}

func NewPlayer(guildID string, deps PlayerDeps, opts Options) *Player {
	var refiller Refiller
	if deps.Refiller != nil {
		refiller = deps.Refiller
	}
	return &Player{
		guildID: guildID,
		opts:    opts,
		deps:    deps,
		state:   NewGuildState(opts.DefaultVolume, refiller),
		conn:    NewConnection(guildID, deps.Transport, opts),
		status:  PlaybackIdle,
		sleep:   sleepContext,
		log:     logger.Component("music").With("guild_id", guildID),
	}
}

func (p *Player) GuildID() string {
	return p.guildID
}

func (p *Player) lifetime() (context.Context, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		p.ctx, p.cancel = context.WithCancel(context.Background())
	}
	return p.ctx, p.gen
}

// commandContext ends when either parent or the player lifetime ends.
func (p *Player) commandContext(parent context.Context) (context.Context, context.CancelFunc, uint64) {
	life, gen := p.lifetime()
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, gen
}

func (p *Player) sameGen(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen == gen && p.ctx != nil
}

func (p *Player) currentPlayback() *Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playback
}

func (p *Player) playbackStatus() PlaybackStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Player) setStatus(status PlaybackStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

func (p *Player) setTextChannel(channelID string) {
	if channelID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.textChannel = channelID
}

// restore applies persisted settings. Called once when the player is created.
func (p *Player) restore(ctx context.Context) {
	if p.deps.Settings == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, settingsTimeout)
	defer cancel()

	settings, ok, err := p.deps.Settings.Load(ctx, p.guildID)
	if err != nil {
		p.log.Warn("failed to load guild settings", "error", err)
		return
	}
	if !ok {
		return
	}

	if p.deps.Refiller == nil || !p.deps.Refiller.HasCategory(settings.Category) {
		settings.Category = ""
	}
	p.state.Restore(settings)
}

func (p *Player) persist() {
	if p.deps.Settings == nil {
		return
	}
	snap := p.state.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), settingsTimeout)
	defer cancel()

	err := p.deps.Settings.Save(ctx, p.guildID, GuildSettings{
		Volume:   snap.Volume,
		Category: snap.Category,
	})
	if err != nil {
		p.log.Warn("failed to save guild settings", "error", err)
	}
}

func validateQuery(query string, limit int) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrMissingInput
	}
	if limit > 0 && utf8.RuneCountInString(query) > limit {
		return "", fmt.Errorf("%w: max %d characters", ErrQueryTooLong, limit)
	}
	return query, nil
}

// Play connects, resolves the query, queues the track and starts playback
// when the guild is idle.
func (p *Player) Play(parent context.Context, req PlayRequest) (PlayResult, error) {
	query, err := validateQuery(req.Query, p.opts.MaxQueryLength)
	if err != nil {
		return PlayResult{}, err
	}
	if req.VoiceChannelID == "" {
		return PlayResult{}, ErrNoVoiceChannel
	}

	ctx, cancel, gen := p.commandContext(parent)
	defer cancel()

	if err := p.Join(ctx, req.VoiceChannelID, req.TextChannelID); err != nil {
		return PlayResult{}, err
	}

	track, err := p.deps.Resolver.Resolve(ctx, query)
	if err != nil {
		if !p.sameGen(gen) {
			return PlayResult{}, ErrPlaybackCancelled
		}
		return PlayResult{}, err
	}
	track.RequestedBy = req.RequestedBy

	return p.enqueue(ctx, gen, req.VoiceChannelID, track)
}

func (p *Player) enqueue(ctx context.Context, gen uint64, channelID string, track Track) (PlayResult, error) {
	p.ops.Lock()
	defer p.ops.Unlock()

	if !p.sameGen(gen) {
		return PlayResult{}, ErrPlaybackCancelled
	}
	if _, err := p.conn.Ensure(ctx, channelID); err != nil {
		return PlayResult{}, err
	}
	if p.opts.MaxQueueSize > 0 && p.state.QueueLen() >= p.opts.MaxQueueSize {
		return PlayResult{}, ErrQueueFull
	}

	position := p.state.Enqueue(track)
	p.log.Info("track queued", "title", track.Title, "position", position)

	if p.playbackStatus() != PlaybackIdle {
		return PlayResult{Track: track, Position: position}, nil
	}

	p.setStatus(PlaybackPlaying)
	p.state.ResetRetry()
	life, _ := p.lifetime()
	go p.transition(life, gen, nil)
	return PlayResult{Track: track, Started: true}, nil
}

// Join connects to or moves into channelID.
func (p *Player) Join(parent context.Context, channelID, textChannelID string) error {
	if channelID == "" {
		return ErrNoVoiceChannel
	}
	ctx, cancel, gen := p.commandContext(parent)
	defer cancel()

	p.ops.Lock()
	defer p.ops.Unlock()

	if !p.sameGen(gen) {
		return ErrPlaybackCancelled
	}
	p.setTextChannel(textChannelID)
	if _, err := p.conn.Ensure(ctx, channelID); err != nil {
		return err
	}
	return nil
}

// Leave cancels everything in flight, disconnects and resets the guild.
func (p *Player) Leave() error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.ctx, p.cancel = nil, nil
	p.gen++
	p.mu.Unlock()

	p.ops.Lock()
	defer p.ops.Unlock()

	wasConnected := p.conn.State() != ConnDisconnected || p.conn.Healthy()
	if pb := p.detachPlayback(PlaybackIdle); pb != nil {
		pb.Abort()
	}
	p.state.Reset()
	p.state.SetRepeat(false)
	p.conn.Reset()

	p.mu.Lock()
	p.reconnecting = false
	p.mu.Unlock()

	p.log.Info("left voice channel")
	if !wasConnected {
		return ErrNotConnected
	}
	return nil
}

// detachPlayback forgets the running playback so its completion is
// discarded, and sets the playback status.
func (p *Player) detachPlayback(status PlaybackStatus) *Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	pb := p.playback
	p.playback = nil
	p.status = status
	return pb
}

func (p *Player) Pause() error {
	p.ops.Lock()
	defer p.ops.Unlock()

	pb := p.currentPlayback()
	if pb == nil {
		return ErrNothingPlaying
	}
	if pb.Pause() {
		p.setStatus(PlaybackPaused)
	}
	return nil
}

func (p *Player) Resume() error {
	p.ops.Lock()
	defer p.ops.Unlock()

	pb := p.currentPlayback()
	if pb == nil {
		return ErrNothingPlaying
	}
	if !pb.Resume() {
		return ErrNotPaused
	}
	p.setStatus(PlaybackPlaying)
	return nil
}

// Skip stops the current track. Repeat is switched off so the skip is not
// swallowed by a replay.
func (p *Player) Skip() (Track, error) {
	p.ops.Lock()
	defer p.ops.Unlock()

	pb := p.currentPlayback()
	if pb == nil {
		return Track{}, ErrNothingPlaying
	}

	p.state.SetRepeat(false)
	p.state.ResetRetry()
	pb.Stop()

	p.log.Info("track skipped", "title", pb.Track.Title)
	return pb.Track, nil
}

func (p *Player) ToggleRepeat() bool {
	p.ops.Lock()
	defer p.ops.Unlock()

	return p.state.ToggleRepeat()
}

// SetVolume takes a 1..100 level. It applies from the next track on.
func (p *Player) SetVolume(level int) (float64, error) {
	p.ops.Lock()
	defer p.ops.Unlock()

	v, err := p.state.SetLevel(level)
	if err != nil {
		return 0, err
	}
	p.persist()
	return v, nil
}

// AdjustVolume adds delta to the volume, clamped to [0,1].
func (p *Player) AdjustVolume(delta float64) float64 {
	p.ops.Lock()
	defer p.ops.Unlock()

	v := p.state.SetVolume(delta)
	p.persist()
	return v
}

func (p *Player) Queue() StateSnapshot {
	return p.state.Snapshot()
}

func (p *Player) Clear() int {
	p.ops.Lock()
	defer p.ops.Unlock()
	return p.state.Clear()
}

// SetAutoplay turns autoplay off for an empty category. Otherwise it enables
// the category and immediately queues one track from it.
func (p *Player) SetAutoplay(parent context.Context, category string, req PlayRequest) (*PlayResult, error) {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, "off") {
		p.ops.Lock()
		p.state.SetAutoplay("")
		p.persist()
		p.ops.Unlock()
		return nil, nil
	}
	if p.deps.Refiller == nil || !p.deps.Refiller.HasCategory(category) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	p.ops.Lock()
	p.state.SetAutoplay(category)
	p.persist()
	p.ops.Unlock()

	if req.VoiceChannelID == "" {
		return nil, ErrNoVoiceChannel
	}

	ctx, cancel, gen := p.commandContext(parent)
	defer cancel()

	if err := p.Join(ctx, req.VoiceChannelID, req.TextChannelID); err != nil {
		return nil, err
	}

	track, err := p.deps.Refiller.Refill(ctx, category)
	if err != nil {
		if !p.sameGen(gen) {
			return nil, ErrPlaybackCancelled
		}
		return nil, err
	}

	res, err := p.enqueue(ctx, gen, req.VoiceChannelID, track)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (p *Player) NowPlaying() (Track, time.Duration, error) {
	pb := p.currentPlayback()
	if pb == nil {
		return Track{}, 0, ErrNothingPlaying
	}
	return pb.Track, pb.Position(), nil
}

// ResetCounters clears the queue and every retry counter.
func (p *Player) ResetCounters() {
	p.ops.Lock()
	defer p.ops.Unlock()

	p.state.Clear()
	p.state.ResetRetry()
	p.conn.ResetAttempts()
}

func (p *Player) Status() Status {
	snap := p.state.Snapshot()
	conn := p.conn.Snapshot()

	return Status{
		GuildID:           p.guildID,
		Playback:          p.playbackStatus(),
		Connection:        conn.State,
		ChannelID:         conn.ChannelID,
		Current:           snap.Current,
		QueueLength:       len(snap.Queue),
		Repeat:            snap.Repeat,
		Volume:            snap.Volume,
		Autoplay:          snap.Autoplay,
		Category:          snap.Category,
		RetryCount:        snap.RetryCount,
		ReconnectAttempts: conn.ReconnectAttempts,
		LastDisconnectAt:  conn.LastDisconnectAt,
	}
}

// Idle reports whether nothing is playing and no connection is held.
func (p *Player) Idle() bool {
	return p.playbackStatus() == PlaybackIdle && p.conn.State() == ConnDisconnected
}

func (p *Player) startLocked(ctx context.Context, track Track) error {
	handle := p.conn.Handle()
	if handle == nil {
		return ErrNotConnected
	}

	pb, err := p.deps.Driver.Start(ctx, handle, track, p.state.Volume(), p.onPlaybackDone)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.playback = pb
	p.status = PlaybackPlaying
	p.mu.Unlock()
	return nil
}

func (p *Player) onPlaybackDone(pb *Playback, err error) {
	p.ops.Lock()
	p.mu.Lock()
	if p.playback != pb {
		p.mu.Unlock()
		p.ops.Unlock()
		p.log.Debug("discarding stale playback completion", "playback_id", pb.ID)
		return
	}
	p.playback = nil
	ctx, gen := p.ctx, p.gen
	p.mu.Unlock()

	if err == nil {
		p.state.ResetRetry()
	}
	p.ops.Unlock()

	if ctx == nil || errors.Is(err, ErrPlaybackCancelled) {
		return
	}
	if errors.Is(err, ErrDisconnected) {
		p.HandleDisconnect()
		return
	}
	p.transition(ctx, gen, err)
}

// transition moves the guild to its next track after a playback ended with
// endErr. It is the single place where the queue advances; failures are
// retried after a fixed delay up to MaxPlaybackRetries.
func (p *Player) transition(ctx context.Context, gen uint64, endErr error) {
	failed := endErr != nil
	for {
		p.ops.Lock()
		if !p.sameGen(gen) || ctx.Err() != nil {
			p.ops.Unlock()
			return
		}

		if failed {
			attempt := p.state.IncRetry()
			if attempt >= p.opts.MaxPlaybackRetries {
				p.state.ResetRetry()
				p.state.ClearCurrent()
				p.detachPlayback(PlaybackIdle)
				p.ops.Unlock()

				p.log.Error("playback failed, giving up", "attempts", attempt, "error", endErr)
				p.notify(ctx, fmt.Sprintf("❌ 재생에 계속 실패해 중단했습니다. (%d회 시도)", attempt))
				return
			}
			p.ops.Unlock()

			p.log.Warn("playback failed, retrying",
				"attempt", attempt,
				"max_attempts", p.opts.MaxPlaybackRetries,
				"error", endErr)
			if err := p.sleep(ctx, p.opts.PlaybackRetryDelay); err != nil {
				return
			}
			failed = false
			continue
		}

		track, ok, refillErr := p.state.Next(ctx)
		if !ok {
			p.detachPlayback(PlaybackIdle)
			p.ops.Unlock()

			if refillErr != nil && ctx.Err() == nil {
				p.log.Error("autoplay refill failed", "error", refillErr)
				p.notify(ctx, "❌ 자동 재생할 곡을 찾지 못했습니다.")
			} else {
				p.log.Info("queue finished")
			}
			return
		}

		if err := p.startLocked(ctx, track); err != nil {
			p.ops.Unlock()
			endErr = err
			failed = true
			continue
		}
		p.ops.Unlock()
		return
	}
}

func (p *Player) notify(ctx context.Context, message string) {
	if p.deps.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	p.mu.Lock()
	channelID := p.textChannel
	p.mu.Unlock()

	if err := p.deps.Notifier.Notify(ctx, p.guildID, channelID, message); err != nil {
		p.log.Warn("failed to deliver notice", "error", err)
	}
}
