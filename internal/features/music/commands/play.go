package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hxnx/melodybot/internal/features/music/controls"
	"github.com/hxnx/melodybot/internal/features/music/queueview"
	shared "github.com/hxnx/melodybot/internal/features/shared"
	"github.com/hxnx/melodybot/internal/music"
)

const playTimeout = 3 * time.Minute

func (h *Handler) Play(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !guildOnly(s, i) {
		return
	}

	req := playRequest(s, i, shared.GetOptionString(options, "검색어"))
	if req.VoiceChannelID == "" {
		shared.RespondEphemeral(s, i, errorMessage(music.ErrNoVoiceChannel))
		return
	}

	if err := shared.DeferReply(s, i, false); err != nil {
		h.log.Warn("play defer failed", "guild_id", i.GuildID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	p := h.players.Get(i.GuildID)
	res, err := p.Play(ctx, req)
	if err != nil {
		h.log.Warn("play failed", "guild_id", i.GuildID, "query", req.Query, "error", err)
		shared.Followup(s, i, "❌ "+errorMessage(err), true)
		return
	}

	if res.Started {
		shared.FollowupComponents(s, i, controls.Components(playResultMessage(res), p.Status()), false)
		return
	}
	shared.Followup(s, i, playResultMessage(res), false)
}

func playResultMessage(res music.PlayResult) string {
	if res.Started {
		return "▶️ 재생을 시작합니다: " + queueview.TrackLine(res.Track)
	}
	return fmt.Sprintf("➕ 대기열 %d번에 추가했습니다: %s", res.Position, queueview.TrackLine(res.Track))
}

func (h *Handler) Autoplay(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !guildOnly(s, i) {
		return
	}

	category := shared.GetOptionString(options, "카테고리")
	req := playRequest(s, i, "")

	if err := shared.DeferReply(s, i, false); err != nil {
		h.log.Warn("autoplay defer failed", "guild_id", i.GuildID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()

	res, err := h.players.Get(i.GuildID).SetAutoplay(ctx, category, req)
	if err != nil {
		h.log.Warn("autoplay failed", "guild_id", i.GuildID, "category", category, "error", err)
		shared.Followup(s, i, "❌ "+errorMessage(err), true)
		return
	}
	if res == nil {
		shared.Followup(s, i, "📻 자동재생을 껐습니다.", false)
		return
	}

	shared.Followup(s, i, fmt.Sprintf("📻 자동재생을 켰습니다: **%s**\n%s", category, playResultMessage(*res)), false)
}
