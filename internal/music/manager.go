package music

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hxnx/melodybot/internal/logger"
)

const DefaultCleanupInterval = 5 * time.Minute

// ManagerDeps wires the engine. Lookup and Transcoder are required.
type ManagerDeps struct {
	Cache      *TrackCache
	Lookup     Lookup
	Transport  VoiceTransport
	Transcoder Transcoder
	Notifier   Notifier
	Settings   SettingsStore

	// LoadTranscode re-reads the persisted transcode record.
	LoadTranscode func() TranscodeConfig
}

// transcodeConfigurer is implemented by transcoders whose record can be
// swapped at runtime.
type transcodeConfigurer interface {
	SetConfig(cfg TranscodeConfig)
	Config() TranscodeConfig
}

// PlayerManager is the guild registry. Players are created on first use and
// dropped on leave.
type PlayerManager struct {
	mu      sync.Mutex
	players map[string]*Player

	opts     Options
	deps     ManagerDeps
	resolver *Resolver
	refiller *AutoplayRefiller
	driver   *Driver
	log      *slog.Logger
}

func NewPlayerManager(deps ManagerDeps, opts Options) *PlayerManager {
	resolver := NewResolver(deps.Lookup, deps.Cache, opts)
	return &PlayerManager{
		players:  make(map[string]*Player),
		opts:     opts,
		deps:     deps,
		resolver: resolver,
		refiller: NewAutoplayRefiller(resolver, opts.Categories),
		driver:   NewDriver(deps.Transcoder),
		log:      logger.Component("music"),
	}
}

// Get returns the guild's player, creating it on first use. Settings are
// restored outside the registry lock; a concurrent loser is discarded.
func (m *PlayerManager) Get(guildID string) *Player {
	if p, ok := m.Lookup(guildID); ok {
		return p
	}

	p := NewPlayer(guildID, PlayerDeps{
		Resolver:  m.resolver,
		Refiller:  m.refiller,
		Transport: m.deps.Transport,
		Driver:    m.driver,
		Notifier:  m.deps.Notifier,
		Settings:  m.deps.Settings,
	}, m.opts)
	p.restore(context.Background())

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.players[guildID]; ok {
		return existing
	}
	m.players[guildID] = p
	return p
}

// Lookup returns the player without creating one.
func (m *PlayerManager) Lookup(guildID string) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[guildID]
	return p, ok
}

// Leave tears the guild down and forgets its player.
func (m *PlayerManager) Leave(guildID string) error {
	m.mu.Lock()
	p, ok := m.players[guildID]
	delete(m.players, guildID)
	m.mu.Unlock()

	if !ok {
		return ErrNotConnected
	}
	return p.Leave()
}

// Active counts guilds that are playing or holding a voice connection.
func (m *PlayerManager) Active() int {
	m.mu.Lock()
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.mu.Unlock()

	n := 0
	for _, p := range players {
		if !p.Idle() {
			n++
		}
	}
	return n
}

func (m *PlayerManager) Categories() []string {
	return m.refiller.Categories()
}

func (m *PlayerManager) Status(guildID string) Status {
	var st Status
	if p, ok := m.Lookup(guildID); ok {
		st = p.Status()
	} else {
		st = Status{
			GuildID:    guildID,
			Playback:   PlaybackIdle,
			Connection: ConnDisconnected,
			Volume:     clampVolume(m.opts.DefaultVolume),
		}
	}
	if m.deps.Cache != nil {
		st.CacheSize = m.deps.Cache.Len()
	}
	if tc, ok := m.deps.Transcoder.(transcodeConfigurer); ok {
		st.TranscodeBinary = tc.Config().Executable
	}
	return st
}

// Reset clears the song cache and the guild's queue and retry counters.
func (m *PlayerManager) Reset(guildID string) {
	if m.deps.Cache != nil {
		m.deps.Cache.Clear()
	}
	if p, ok := m.Lookup(guildID); ok {
		p.ResetCounters()
	}
	m.log.Info("music state reset", "guild_id", guildID)
}

// ReloadTranscode re-reads the transcode record. Tracks already playing keep
// the previous one.
func (m *PlayerManager) ReloadTranscode() TranscodeConfig {
	cfg := DefaultTranscodeConfig()
	if m.deps.LoadTranscode != nil {
		cfg = m.deps.LoadTranscode()
	}
	if tc, ok := m.deps.Transcoder.(transcodeConfigurer); ok {
		tc.SetConfig(cfg)
		cfg = tc.Config()
	}
	m.log.Info("transcode config reloaded", "executable", cfg.Executable)
	return cfg
}

// Cleanup drops players of guilds the bot is no longer in and tears down
// connections that went stale without a disconnect event.
func (m *PlayerManager) Cleanup(inGuild func(guildID string) bool) {
	m.mu.Lock()
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.mu.Unlock()

	for _, p := range players {
		if inGuild != nil && !inGuild(p.guildID) {
			m.log.Info("dropping player for departed guild", "guild_id", p.guildID)
			_ = m.Leave(p.guildID)
			continue
		}
		p.cleanupStale()
	}
}

// RunCleanup calls Cleanup every interval until ctx ends.
func (m *PlayerManager) RunCleanup(ctx context.Context, interval time.Duration, inGuild func(guildID string) bool) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup(inGuild)
		}
	}
}

// Shutdown leaves every guild.
func (m *PlayerManager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.Leave(id)
	}
}

func (p *Player) cleanupStale() {
	p.mu.Lock()
	busy := p.reconnecting
	p.mu.Unlock()
	if busy {
		return
	}

	p.ops.Lock()
	defer p.ops.Unlock()

	if p.conn.State() != ConnConnected || p.conn.Healthy() {
		return
	}
	p.log.Info("tearing down stale voice connection")
	if pb := p.detachPlayback(PlaybackIdle); pb != nil {
		pb.Abort()
	}
	p.conn.Teardown()
}
