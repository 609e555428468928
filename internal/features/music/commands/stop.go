package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	shared "github.com/hxnx/melodybot/internal/features/shared"
	"github.com/hxnx/melodybot/internal/music"
)

const joinTimeout = 2 * time.Minute

func (h *Handler) Join(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !guildOnly(s, i) {
		return
	}

	req := playRequest(s, i, "")
	if req.VoiceChannelID == "" {
		shared.RespondEphemeral(s, i, errorMessage(music.ErrNoVoiceChannel))
		return
	}

	if err := shared.DeferReply(s, i, true); err != nil {
		h.log.Warn("join defer failed", "guild_id", i.GuildID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()

	if err := h.players.Get(i.GuildID).Join(ctx, req.VoiceChannelID, req.TextChannelID); err != nil {
		h.log.Warn("join failed", "guild_id", i.GuildID, "channel_id", req.VoiceChannelID, "error", err)
		shared.Followup(s, i, "❌ "+errorMessage(err), true)
		return
	}
	shared.Followup(s, i, fmt.Sprintf("🔈 <#%s> 채널에 입장했습니다.", req.VoiceChannelID), true)
}

func (h *Handler) Leave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !guildOnly(s, i) {
		return
	}

	err := h.players.Leave(i.GuildID)
	if errors.Is(err, music.ErrNotConnected) {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}
	if err != nil {
		h.log.Warn("leave failed", "guild_id", i.GuildID, "error", err)
	}
	shared.RespondEphemeral(s, i, "👋 재생을 멈추고 음성 채널에서 나왔습니다.")
}

func (h *Handler) Clear(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !guildOnly(s, i) {
		return
	}

	removed := h.players.Get(i.GuildID).Clear()
	if removed == 0 {
		shared.RespondEphemeral(s, i, "대기열이 이미 비어 있습니다.")
		return
	}
	shared.RespondEphemeral(s, i, fmt.Sprintf("🧹 대기열에서 %d곡을 비웠습니다.", removed))
}
