package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	shared "github.com/hxnx/melodybot/internal/features/shared"
)

const adminTimeout = 5 * time.Second

// Reset clears the song cache together with the guild's queue and retry
// counters.
func (h *Handler) Reset(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !guildOnly(s, i) {
		return
	}

	h.players.Reset(i.GuildID)
	shared.RespondEphemeral(s, i, "♻️ 곡 캐시와 대기열, 재시도 횟수를 초기화했습니다.")
}

func (h *Handler) ReloadTranscode(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !guildOnly(s, i) {
		return
	}

	cfg := h.players.ReloadTranscode()
	shared.RespondEphemeral(s, i, fmt.Sprintf("🔧 트랜스코더 설정을 다시 읽었습니다: `%s`\n다음 곡부터 적용됩니다.", cfg.Executable))
}

// NotifyChannel binds the channel for background notices, or unbinds it when
// no channel is given.
func (h *Handler) NotifyChannel(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !guildOnly(s, i) {
		return
	}
	if h.channels == nil {
		shared.RespondEphemeral(s, i, "데이터베이스가 설정되지 않아 알림 채널을 저장할 수 없습니다.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	channelID := shared.GetOptionChannelID(options, "채널")
	if channelID == "" {
		if err := h.channels.DeleteNotifyChannel(ctx, i.GuildID); err != nil {
			h.log.Warn("failed to unbind notify channel", "guild_id", i.GuildID, "error", err)
			shared.RespondEphemeral(s, i, "알림 채널 해제에 실패했습니다.")
			return
		}
		shared.RespondEphemeral(s, i, "🔕 알림 채널을 해제했습니다. 이제 명령을 보낸 채널로 알립니다.")
		return
	}

	if err := h.channels.SetNotifyChannel(ctx, i.GuildID, channelID); err != nil {
		h.log.Warn("failed to bind notify channel", "guild_id", i.GuildID, "error", err)
		shared.RespondEphemeral(s, i, "알림 채널 저장에 실패했습니다.")
		return
	}
	shared.RespondEphemeral(s, i, fmt.Sprintf("🔔 재생 오류 알림을 <#%s> 채널로 보냅니다.", channelID))
}
