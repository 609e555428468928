package music

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/hxnx/melodybot/internal/logger"
)

var errNoNotifyChannel = errors.New("no channel to notify")

// Notifier delivers a human-readable failure message for a guild. channelID
// is the channel of the last command and may be empty.
type Notifier interface {
	Notify(ctx context.Context, guildID, channelID, message string) error
}

// NotifyChannelLookup returns the channel a guild bound for notices.
type NotifyChannelLookup interface {
	NotifyChannel(ctx context.Context, guildID string) (string, bool, error)
}

const noticeColor = 0xC9A0FF

type DiscordNotifier struct {
	session  *discordgo.Session
	channels NotifyChannelLookup
	log      *slog.Logger
}

func NewDiscordNotifier(session *discordgo.Session, channels NotifyChannelLookup) *DiscordNotifier {
	return &DiscordNotifier{
		session:  session,
		channels: channels,
		log:      logger.Component("bot"),
	}
}

func (n *DiscordNotifier) Notify(ctx context.Context, guildID, channelID, message string) error {
	target := n.resolveChannel(ctx, guildID, channelID)
	if target == "" {
		return errNoNotifyChannel
	}

	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       noticeColor,
	}
	if _, err := n.session.ChannelMessageSendEmbed(target, embed, discordgo.WithContext(ctx)); err != nil {
		n.log.Warn("failed to send notice", "guild_id", guildID, "channel_id", target, "error", err)
		return err
	}
	return nil
}

// resolveChannel prefers the bound channel, then the hint, then the guild's
// system channel.
func (n *DiscordNotifier) resolveChannel(ctx context.Context, guildID, channelID string) string {
	if n.channels != nil {
		bound, ok, err := n.channels.NotifyChannel(ctx, guildID)
		if err != nil {
			n.log.Debug("notify channel lookup failed", "guild_id", guildID, "error", err)
		}
		if ok && bound != "" {
			return bound
		}
	}

	if channelID != "" {
		return channelID
	}

	if n.session == nil || n.session.State == nil {
		return ""
	}
	guild, err := n.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return ""
	}
	return guild.SystemChannelID
}
