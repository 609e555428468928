package bot

import (
	"context"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/hxnx/melodybot/internal/music"
)

// shardRouter sends voice and notice traffic through the session that owns
// the guild's shard.
type shardRouter struct {
	sessions  []*discordgo.Session
	voices    []*music.DiscordVoice
	notifiers []*music.DiscordNotifier
}

func newShardRouter(sessions []*discordgo.Session, channels music.NotifyChannelLookup) *shardRouter {
	r := &shardRouter{sessions: sessions}
	for _, s := range sessions {
		r.voices = append(r.voices, music.NewDiscordVoice(s))
		r.notifiers = append(r.notifiers, music.NewDiscordNotifier(s, channels))
	}
	return r
}

// shardFor follows Discord's (guild_id >> 22) % shard_count rule.
func shardFor(guildID string, shards int) int {
	if shards <= 1 {
		return 0
	}
	id, err := strconv.ParseUint(guildID, 10, 64)
	if err != nil {
		return 0
	}
	return int((id >> 22) % uint64(shards))
}

func (r *shardRouter) Connect(ctx context.Context, guildID, channelID string) (music.VoiceHandle, error) {
	return r.voices[shardFor(guildID, len(r.voices))].Connect(ctx, guildID, channelID)
}

func (r *shardRouter) Notify(ctx context.Context, guildID, channelID, message string) error {
	return r.notifiers[shardFor(guildID, len(r.notifiers))].Notify(ctx, guildID, channelID, message)
}

// inGuild reports whether any shard still sees the guild.
func (r *shardRouter) inGuild(guildID string) bool {
	s := r.sessions[shardFor(guildID, len(r.sessions))]
	if s.State == nil {
		return true
	}
	_, err := s.State.Guild(guildID)
	return err == nil
}
