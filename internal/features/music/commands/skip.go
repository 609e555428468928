package commands

import (
	"fmt"
	"math"

	"github.com/bwmarrin/discordgo"
	"github.com/hxnx/melodybot/internal/features/music/queueview"
	shared "github.com/hxnx/melodybot/internal/features/shared"
)

func (h *Handler) Skip(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !guildOnly(s, i) {
		return
	}

	track, err := h.players.Get(i.GuildID).Skip()
	if err != nil {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}
	shared.RespondEphemeral(s, i, "⏭️ 건너뛰었습니다: "+queueview.TrackLine(track))
}

func (h *Handler) Pause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !guildOnly(s, i) {
		return
	}

	if err := h.players.Get(i.GuildID).Pause(); err != nil {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}
	shared.RespondEphemeral(s, i, "⏸️ 일시정지했습니다.")
}

func (h *Handler) Resume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !guildOnly(s, i) {
		return
	}

	if err := h.players.Get(i.GuildID).Resume(); err != nil {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}
	shared.RespondEphemeral(s, i, "▶️ 다시 재생합니다.")
}

func (h *Handler) Repeat(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !guildOnly(s, i) {
		return
	}

	if h.players.Get(i.GuildID).ToggleRepeat() {
		shared.RespondEphemeral(s, i, "🔂 현재 곡을 반복합니다.")
		return
	}
	shared.RespondEphemeral(s, i, "➡️ 반복을 껐습니다.")
}

func (h *Handler) Volume(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !guildOnly(s, i) {
		return
	}

	v, err := h.players.Get(i.GuildID).SetVolume(shared.GetOptionInt(options, "크기"))
	if err != nil {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}
	shared.RespondEphemeral(s, i, fmt.Sprintf("🔊 볼륨을 %d%%로 설정했습니다. 다음 곡부터 적용됩니다.", int(math.Round(v*100))))
}
