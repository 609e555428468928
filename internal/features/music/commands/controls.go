package commands

import (
	"fmt"
	"math"

	"github.com/bwmarrin/discordgo"
	"github.com/hxnx/melodybot/internal/features/music/controls"
	"github.com/hxnx/melodybot/internal/features/music/queueview"
	shared "github.com/hxnx/melodybot/internal/features/shared"
	"github.com/hxnx/melodybot/internal/music"
)

// controlTarget is the part of a player the control buttons drive.
type controlTarget interface {
	Status() music.Status
	Pause() error
	Resume() error
	Skip() (music.Track, error)
	ToggleRepeat() bool
	AdjustVolume(delta float64) float64
}

var _ controlTarget = (*music.Player)(nil)

func applyControl(p controlTarget, action controls.Action) (string, error) {
	switch action {
	case controls.VolumeDown, controls.VolumeUp:
		delta := controls.VolumeStep
		if action == controls.VolumeDown {
			delta = -delta
		}
		v := p.AdjustVolume(delta)
		return fmt.Sprintf("🔊 볼륨을 %d%%로 바꿨습니다. 다음 곡부터 적용됩니다.", int(math.Round(v*100))), nil
	case controls.PauseResume:
		if p.Status().Playback == music.PlaybackPaused {
			if err := p.Resume(); err != nil {
				return "", err
			}
			return "▶️ 다시 재생합니다.", nil
		}
		if err := p.Pause(); err != nil {
			return "", err
		}
		return "⏸️ 일시정지했습니다.", nil
	case controls.Skip:
		track, err := p.Skip()
		if err != nil {
			return "", err
		}
		return "⏭️ 건너뛰었습니다: " + queueview.TrackLine(track), nil
	case controls.Repeat:
		if p.ToggleRepeat() {
			return "🔂 현재 곡을 반복합니다.", nil
		}
		return "➡️ 반복을 껐습니다.", nil
	}
	return "", fmt.Errorf("unknown control %q", action)
}

// Control answers a control button by updating the message it sits on.
func (h *Handler) Control(s *discordgo.Session, i *discordgo.InteractionCreate, customID string) {
	action, ok := controls.ParseCustomID(customID)
	if !ok {
		shared.RespondEphemeral(s, i, "알 수 없는 버튼입니다.")
		return
	}
	if !guildOnly(s, i) {
		return
	}

	userID := shared.GetInteractionUserID(i)
	voiceChannelID, err := shared.FindUserVoiceChannel(s, i.GuildID, userID)
	if err != nil {
		shared.RespondEphemeral(s, i, errorMessage(shared.ErrUserNotInVoice))
		return
	}

	p, ok := h.players.Lookup(i.GuildID)
	if !ok {
		shared.RespondEphemeral(s, i, errorMessage(music.ErrNothingPlaying))
		return
	}
	if ch := p.Status().ChannelID; ch != "" && ch != voiceChannelID {
		shared.RespondEphemeral(s, i, "봇과 같은 음성 채널에서만 조작할 수 있습니다.")
		return
	}

	msg, err := applyControl(p, action)
	if err != nil {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}
	h.log.Info("control applied", "guild_id", i.GuildID, "action", action, "user_id", userID)

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Components: controls.Components(msg, p.Status()),
			Flags:      discordgo.MessageFlagsIsComponentsV2,
		},
	})
	if err != nil {
		h.log.Warn("control update failed", "guild_id", i.GuildID, "error", err)
	}
}
