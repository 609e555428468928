package controls

import (
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/discordgo"
	shared "github.com/hxnx/melodybot/internal/features/shared"
	"github.com/hxnx/melodybot/internal/music"
)

const (
	CustomIDPrefix = "music_ctl_"

	// VolumeStep is the change applied by one volume button press.
	VolumeStep = 0.1
)

// Action is a playback control button.
type Action string

const (
	VolumeDown  Action = "voldown"
	VolumeUp    Action = "volup"
	PauseResume Action = "pause"
	Skip        Action = "skip"
	Repeat      Action = "repeat"
)

var actions = []Action{VolumeDown, PauseResume, Skip, Repeat, VolumeUp}

func CustomID(a Action) string {
	return CustomIDPrefix + string(a)
}

func ParseCustomID(customID string) (Action, bool) {
	name, ok := strings.CutPrefix(customID, CustomIDPrefix)
	if !ok {
		return "", false
	}
	for _, a := range actions {
		if string(a) == name {
			return a, true
		}
	}
	return "", false
}

// Row renders the control buttons for the player state in st.
func Row(st music.Status) discordgo.ActionsRow {
	idle := st.Playback == music.PlaybackIdle

	pause := discordgo.Button{
		Style:    discordgo.SecondaryButton,
		Label:    "일시정지",
		Emoji:    &discordgo.ComponentEmoji{Name: "⏸️"},
		CustomID: CustomID(PauseResume),
		Disabled: idle,
	}
	if st.Playback == music.PlaybackPaused {
		pause.Style = discordgo.PrimaryButton
		pause.Label = "재개"
		pause.Emoji = &discordgo.ComponentEmoji{Name: "▶️"}
	}

	repeat := discordgo.Button{
		Style:    discordgo.SecondaryButton,
		Label:    "반복",
		Emoji:    &discordgo.ComponentEmoji{Name: "🔂"},
		CustomID: CustomID(Repeat),
	}
	if st.Repeat {
		repeat.Style = discordgo.SuccessButton
	}

	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Style:    discordgo.SecondaryButton,
				Emoji:    &discordgo.ComponentEmoji{Name: "🔉"},
				CustomID: CustomID(VolumeDown),
				Disabled: st.Volume <= 0,
			},
			pause,
			discordgo.Button{
				Style:    discordgo.SecondaryButton,
				Label:    "건너뛰기",
				Emoji:    &discordgo.ComponentEmoji{Name: "⏭️"},
				CustomID: CustomID(Skip),
				Disabled: idle,
			},
			repeat,
			discordgo.Button{
				Style:    discordgo.SecondaryButton,
				Emoji:    &discordgo.ComponentEmoji{Name: "🔊"},
				CustomID: CustomID(VolumeUp),
				Disabled: st.Volume >= 1,
			},
		},
	}
}

// Components wraps content in a container carrying the control row.
func Components(content string, st music.Status) []discordgo.MessageComponent {
	divider := true
	spacing := discordgo.SeparatorSpacingSizeSmall

	return []discordgo.MessageComponent{
		discordgo.Container{
			AccentColor: &shared.AccentColor,
			Components: []discordgo.MessageComponent{
				discordgo.TextDisplay{Content: content},
				discordgo.TextDisplay{Content: footer(st)},
				discordgo.Separator{Divider: &divider, Spacing: &spacing},
				Row(st),
			},
		},
	}
}

func footer(st music.Status) string {
	repeat := "꺼짐"
	if st.Repeat {
		repeat = "켜짐"
	}
	return fmt.Sprintf("-# 🔊 %d%% · 🔂 %s · 대기열 %d곡", int(math.Round(st.Volume*100)), repeat, st.QueueLength)
}
