package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hxnx/melodybot/config"
	"github.com/hxnx/melodybot/internal/bot"
	"github.com/hxnx/melodybot/internal/logger"
)

const usage = `Please ensure you have set the following environment variables:
  DISCORD_TOKEN          - Your Discord bot token (required)
  DISCORD_APPLICATION_ID - Your Discord application ID (required)

Optional environment variables:
  DISCORD_GUILD_ID       - Guild ID for development (registers commands to specific guild)
  DISCORD_OWNER_ID       - User allowed to run !sync
  SHARD_COUNT            - Number of shards (0 = auto-detect)
  LOG_LEVEL              - Log level (debug, info, warn, error)
  MUSIC_CONFIG_PATH      - music.toml path (default: XDG config dir, then ./music.toml)
  SONG_CACHE_PATH        - Resolved song cache file (default: XDG cache dir)

Database configuration (notice channels):
  DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE

Redis configuration (guild settings):
  REDIS_HOST, REDIS_PORT, REDIS_PASSWORD, REDIS_DB`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.Init("info", os.Stderr)
		log.Error("failed to load configuration", "error", err)
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	log := logger.Init(cfg.LogLevel, os.Stderr)
	log.Info("configuration loaded",
		"mode", modeName(cfg),
		"guild_id", cfg.GuildID,
		"shards", cfg.ShardCount,
		"database", cfg.HasDatabase(),
		"redis", cfg.HasRedis(),
		"song_cache", cfg.SongCachePath,
		"music_config", cfg.EngineConfigPaths(),
	)

	b, err := bot.New(cfg)
	if err != nil {
		log.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	if err := b.Start(); err != nil {
		log.Error("bot error", "error", err)
		os.Exit(1)
	}

	log.Info("bot is running, press CTRL+C to exit")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	if err := b.Stop(); err != nil {
		log.Error("failed to stop bot", "error", err)
	}
}

func modeName(cfg *config.Config) string {
	if cfg.IsDevelopment() {
		return "development"
	}
	return "production"
}
