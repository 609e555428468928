package listeners

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	shared "github.com/hxnx/melodybot/internal/features/shared"
)

const voiceEmptyNotice = "🔇 음성 채널에 유저가 없어 재생을 종료했습니다."

func (l *Listener) HandleVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if s == nil || vs == nil || vs.GuildID == "" {
		return
	}

	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	if botID == "" {
		return
	}

	players := l.handler.Players()
	player, ok := players.Lookup(vs.GuildID)
	if !ok {
		return
	}

	if vs.UserID == botID {
		// Dropped from voice without /퇴장: the player is still registered.
		if vs.ChannelID == "" && !player.Idle() {
			go player.HandleDisconnect()
		}
		return
	}

	guild := shared.GetGuildWithVoiceStates(s, vs.GuildID)
	if guild == nil {
		return
	}

	botChannelID := ""
	for _, state := range guild.VoiceStates {
		if state.UserID == botID && state.ChannelID != "" {
			botChannelID = state.ChannelID
			break
		}
	}
	if botChannelID == "" {
		return
	}

	for _, state := range guild.VoiceStates {
		if state.ChannelID == botChannelID && state.UserID != botID {
			return
		}
	}

	if err := players.Leave(vs.GuildID); err != nil {
		return
	}
	l.log.Info("voice channel empty, stopped playback", "guild_id", vs.GuildID, "channel_id", botChannelID)

	if l.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := l.notifier.Notify(ctx, vs.GuildID, "", voiceEmptyNotice); err != nil {
		l.log.Warn("failed to send voice-empty notice", "guild_id", vs.GuildID, "error", err)
	}
}
