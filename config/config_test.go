package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DISCORD_APPLICATION_ID", "123")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_TOKEN")
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_APPLICATION_ID", "123")
	t.Setenv("SHARD_COUNT", "4")
	t.Setenv("REDIS_PORT", "not-a-port")
	t.Setenv("SONG_CACHE_PATH", "/var/lib/melodybot/cache.json")
	t.Setenv("DB_HOST", "")
	t.Setenv("REDIS_HOST", "localhost")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.ShardCount)
	assert.Equal(t, 6379, cfg.RedisPort)
	assert.Equal(t, "/var/lib/melodybot/cache.json", cfg.SongCachePath)
	assert.False(t, cfg.HasDatabase())
	assert.True(t, cfg.HasRedis())
}

func TestEngineConfigPaths(t *testing.T) {
	cfg := &Config{}
	paths := cfg.EngineConfigPaths()
	require.Len(t, paths, 2)
	assert.Equal(t, "music.toml", filepath.Base(paths[0]))
	assert.Equal(t, "music.toml", paths[1])

	cfg.EngineConfigPath = "/etc/melodybot/music.toml"
	assert.Equal(t, []string{"/etc/melodybot/music.toml"}, cfg.EngineConfigPaths())
}
