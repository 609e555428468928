package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hxnx/melodybot/config"
	"github.com/hxnx/melodybot/internal/database"
	commands "github.com/hxnx/melodybot/internal/features"
	musiccmd "github.com/hxnx/melodybot/internal/features/music/commands"
	musiclisteners "github.com/hxnx/melodybot/internal/features/music/listeners"
	"github.com/hxnx/melodybot/internal/logger"
	"github.com/hxnx/melodybot/internal/music"
	"github.com/hxnx/melodybot/internal/redis"
)

const startupTimeout = 15 * time.Second

type Bot struct {
	config       *config.Config
	sessions     []*discordgo.Session
	router       *shardRouter
	players      *music.PlayerManager
	commands     *commands.Commands
	started      bool
	presenceStop chan struct{}
	cleanupStop  context.CancelFunc
	log          *slog.Logger
}

func New(cfg *config.Config) (*Bot, error) {
	log := logger.Component("bot")

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	var channels musiccmd.NotifyChannels
	repo := database.NewGuildRepositoryWithDB(nil)
	if cfg.HasDatabase() {
		dbConfig := &database.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}
		if err := database.Initialize(dbConfig); err != nil {
			log.Warn("database initialization failed, notice channels disabled", "error", err)
		} else {
			repo = database.NewGuildRepository()
			channels = repo
		}
	}

	var settings music.SettingsStore
	if cfg.HasRedis() {
		redisConfig := redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
		if client, err := redis.Init(ctx, redisConfig); err != nil {
			log.Warn("redis initialization failed, guild settings will not persist", "error", err)
		} else {
			settings = music.NewRedisSettingsStore(client)
		}
	}

	sessions, err := openSessions(cfg, log)
	if err != nil {
		return nil, err
	}

	enginePaths := cfg.EngineConfigPaths()
	engine, err := config.LoadEngine(enginePaths)
	if err != nil {
		log.Warn("music config unreadable, using defaults", "error", err)
	}

	router := newShardRouter(sessions, repo)
	players := music.NewPlayerManager(music.ManagerDeps{
		Cache:      music.NewTrackCache(cfg.SongCachePath, engine.Cache.TTL, engine.Cache.Capacity),
		Lookup:     music.NewYTDLPLookup(engine.Resolver.YTDLP),
		Transport:  router,
		Transcoder: music.NewFFmpegTranscoder(engine.Transcode),
		Notifier:   router,
		Settings:   settings,
		LoadTranscode: func() music.TranscodeConfig {
			tc, err := config.LoadTranscode(enginePaths)
			if err != nil {
				log.Warn("transcode config unreadable, using defaults", "error", err)
			}
			return tc
		},
	}, engine.Options())

	handler := musiccmd.NewHandler(players, channels)
	listener := musiclisteners.New(handler, router)

	return &Bot{
		config:   cfg,
		sessions: sessions,
		router:   router,
		players:  players,
		commands: commands.New(handler, listener, cfg.OwnerID),
		log:      log,
	}, nil
}

func openSessions(cfg *config.Config, log *slog.Logger) ([]*discordgo.Session, error) {
	shardCount := cfg.ShardCount
	if shardCount < 1 {
		s, err := discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			return nil, err
		}

		if gw, err := s.GatewayBot(); err == nil && gw.Shards > 0 {
			shardCount = gw.Shards
		} else {
			log.Warn("failed to auto-detect shard count, defaulting to 1", "error", err)
			shardCount = 1
		}
	}

	sessions := make([]*discordgo.Session, 0, shardCount)
	for shard := 0; shard < shardCount; shard++ {
		s, err := discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			return nil, err
		}

		s.Identify.Intents = discordgo.IntentsGuilds |
			discordgo.IntentsGuildVoiceStates |
			discordgo.IntentsGuildMessages |
			discordgo.IntentsMessageContent

		if shardCount > 1 {
			s.Identify.Shard = &[2]int{shard, shardCount}
			s.ShardID = shard
			s.ShardCount = shardCount
		}

		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (b *Bot) Start() error {
	if b.started {
		return nil
	}

	if len(b.sessions) == 0 {
		return nil
	}

	for _, s := range b.sessions {
		b.registerHandlers(s)
		b.commands.AddHandlers(s)
	}

	if _, err := b.commands.RegisterCommands(b.sessions[0], b.config.ApplicationID, b.config.GuildID); err != nil {
		b.log.Warn("failed to register slash commands", "error", err)
	}

	for _, s := range b.sessions {
		if err := s.Open(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cleanupStop = cancel
	go b.players.RunCleanup(ctx, music.DefaultCleanupInterval, b.router.inGuild)

	b.startPresenceUpdater()
	b.started = true
	b.log.Info("bot session opened", "shards", len(b.sessions))
	return nil
}

func (b *Bot) registerHandlers(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		if s.State != nil && s.State.User != nil {
			b.log.Info("bot ready", "user", s.State.User.Username, "shard", s.ShardID)
		} else {
			b.log.Info("bot ready", "shard", s.ShardID)
		}
		b.updatePresence()
	})
}

func (b *Bot) Stop() error {
	if !b.started {
		return nil
	}

	b.started = false
	b.stopPresenceUpdater()
	if b.cleanupStop != nil {
		b.cleanupStop()
	}
	b.players.Shutdown()

	for _, s := range b.sessions {
		if err := s.Close(); err != nil {
			return err
		}
	}

	if err := database.Close(); err != nil {
		b.log.Warn("failed to close database", "error", err)
	}

	if err := redis.Close(); err != nil {
		b.log.Warn("failed to close redis", "error", err)
	}

	b.log.Info("bot session closed", "shards", len(b.sessions))
	return nil
}
