package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const appName = "melodybot"

type Config struct {
	DiscordToken  string
	ApplicationID string

	GuildID string
	OwnerID string

	ShardCount int

	LogLevel string

	EngineConfigPath string
	SongCachePath    string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken:  os.Getenv("DISCORD_TOKEN"),
		ApplicationID: os.Getenv("DISCORD_APPLICATION_ID"),

		GuildID: os.Getenv("DISCORD_GUILD_ID"),
		OwnerID: os.Getenv("DISCORD_OWNER_ID"),

		ShardCount: getEnvAsIntWithDefault("SHARD_COUNT", 0),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		EngineConfigPath: os.Getenv("MUSIC_CONFIG_PATH"),
		SongCachePath:    getEnvWithDefault("SONG_CACHE_PATH", defaultSongCachePath()),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnvAsIntWithDefault("DB_PORT", 5432),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnvAsIntWithDefault("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvAsIntWithDefault("REDIS_DB", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}

	if c.ApplicationID == "" {
		return errors.New("DISCORD_APPLICATION_ID is required")
	}

	if c.SongCachePath == "" {
		return errors.New("SONG_CACHE_PATH must not be empty")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.GuildID != ""
}

// HasDatabase reports whether postgres settings were provided.
func (c *Config) HasDatabase() bool {
	return c.DBHost != "" && c.DBName != ""
}

// HasRedis reports whether redis settings were provided.
func (c *Config) HasRedis() bool {
	return c.RedisHost != ""
}

// EngineConfigPaths lists engine config files in load order; later files win.
func (c *Config) EngineConfigPaths() []string {
	if c.EngineConfigPath != "" {
		return []string{c.EngineConfigPath}
	}
	return []string{
		filepath.Join(xdg.ConfigHome, appName, "music.toml"),
		"music.toml",
	}
}

func defaultSongCachePath() string {
	return filepath.Join(xdg.CacheHome, appName, "song_cache.json")
}

func getEnvAsIntWithDefault(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvWithDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}
