package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const guildRepoTimeout = 2 * time.Second

// GuildRepository stores the channel each guild wants playback notices in.
type GuildRepository struct {
	db *sql.DB
}

func NewGuildRepository() *GuildRepository {
	return &GuildRepository{db: GetDB()}
}

func NewGuildRepositoryWithDB(db *sql.DB) *GuildRepository {
	return &GuildRepository{db: db}
}

func (r *GuildRepository) SetNotifyChannel(ctx context.Context, guildID, channelID string) error {
	if r == nil || r.db == nil {
		return nil
	}
	if guildID == "" || channelID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, guildRepoTimeout)
	defer cancel()

	const query = `
		INSERT INTO notify_channels (guild_id, channel_id, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (guild_id)
		DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			updated_at = NOW();
	`

	_, err := r.db.ExecContext(ctx, query, guildID, channelID)
	return err
}

// NotifyChannel returns the bound channel; ok is false when none is stored
// or no database is configured.
func (r *GuildRepository) NotifyChannel(ctx context.Context, guildID string) (string, bool, error) {
	if r == nil || r.db == nil {
		return "", false, nil
	}
	if guildID == "" {
		return "", false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, guildRepoTimeout)
	defer cancel()

	const query = `
		SELECT channel_id
		FROM notify_channels
		WHERE guild_id = $1
	`

	var channelID string
	err := r.db.QueryRowContext(ctx, query, guildID).Scan(&channelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}

	return channelID, true, nil
}

func (r *GuildRepository) DeleteNotifyChannel(ctx context.Context, guildID string) error {
	if r == nil || r.db == nil {
		return nil
	}
	if guildID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, guildRepoTimeout)
	defer cancel()

	const query = `
		DELETE FROM notify_channels
		WHERE guild_id = $1
	`

	_, err := r.db.ExecContext(ctx, query, guildID)
	return err
}
