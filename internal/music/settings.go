package music

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	internalredis "github.com/hxnx/melodybot/internal/redis"
	redislib "github.com/redis/go-redis/v9"
)

const settingsKeyPrefix = "music:settings:"

// GuildSettings is the part of a guild's state that survives restarts.
// Repeat is session state and is not stored.
type GuildSettings struct {
	Volume   float64
	Category string
}

// SettingsStore persists GuildSettings. ok is false when nothing is stored.
type SettingsStore interface {
	Load(ctx context.Context, guildID string) (settings GuildSettings, ok bool, err error)
	Save(ctx context.Context, guildID string, settings GuildSettings) error
}

type RedisSettingsStore struct {
	client *redislib.Client
}

func NewRedisSettingsStore(client *redislib.Client) *RedisSettingsStore {
	return &RedisSettingsStore{client: client}
}

func NewRedisSettingsStoreFromDefault() *RedisSettingsStore {
	return &RedisSettingsStore{client: internalredis.Client()}
}

var errRedisUnavailable = errors.New("redis client is nil")

// redisClient falls back to the shared client when none was injected.
func (s *RedisSettingsStore) redisClient() (*redislib.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	if c := internalredis.Client(); c != nil {
		return c, nil
	}
	return nil, errRedisUnavailable
}

func (s *RedisSettingsStore) Load(ctx context.Context, guildID string) (GuildSettings, bool, error) {
	client, err := s.redisClient()
	if err != nil {
		return GuildSettings{}, false, err
	}
	if guildID == "" {
		return GuildSettings{}, false, fmt.Errorf("guild id is required")
	}

	data, err := client.HGetAll(ctx, settingsKey(guildID)).Result()
	if err != nil {
		return GuildSettings{}, false, err
	}
	if len(data) == 0 {
		return GuildSettings{}, false, nil
	}

	return decodeSettings(data), true, nil
}

func (s *RedisSettingsStore) Save(ctx context.Context, guildID string, settings GuildSettings) error {
	client, err := s.redisClient()
	if err != nil {
		return err
	}
	if guildID == "" {
		return fmt.Errorf("guild id is required")
	}

	return client.HSet(ctx, settingsKey(guildID), encodeSettings(settings)).Err()
}

func settingsKey(guildID string) string {
	return settingsKeyPrefix + guildID
}

func encodeSettings(settings GuildSettings) map[string]interface{} {
	return map[string]interface{}{
		"volume":   strconv.FormatFloat(clampVolume(settings.Volume), 'f', 2, 64),
		"category": settings.Category,
	}
}

func decodeSettings(data map[string]string) GuildSettings {
	settings := GuildSettings{Volume: DefaultOptions().DefaultVolume}

	if v, ok := data["volume"]; ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			settings.Volume = clampVolume(parsed)
		}
	}
	if v, ok := data["category"]; ok {
		settings.Category = v
	}

	return settings
}
