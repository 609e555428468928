package controls

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/hxnx/melodybot/internal/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCustomID(t *testing.T) {
	for _, a := range []Action{VolumeDown, VolumeUp, PauseResume, Skip, Repeat} {
		got, ok := ParseCustomID(CustomID(a))
		assert.True(t, ok, a)
		assert.Equal(t, a, got)
	}

	for _, id := range []string{"music_ctl_", "music_ctl_stop", "music_queue_page:1:10", "skip"} {
		_, ok := ParseCustomID(id)
		assert.False(t, ok, id)
	}
}

func buttons(t *testing.T, row discordgo.ActionsRow) map[Action]discordgo.Button {
	t.Helper()
	out := make(map[Action]discordgo.Button, len(row.Components))
	for _, c := range row.Components {
		b, ok := c.(discordgo.Button)
		require.True(t, ok)
		a, ok := ParseCustomID(b.CustomID)
		require.True(t, ok, b.CustomID)
		out[a] = b
	}
	return out
}

func TestRow_Playing(t *testing.T) {
	got := buttons(t, Row(music.Status{Playback: music.PlaybackPlaying, Volume: 0.5}))

	require.Len(t, got, 5)
	assert.Equal(t, "일시정지", got[PauseResume].Label)
	assert.False(t, got[PauseResume].Disabled)
	assert.False(t, got[Skip].Disabled)
	assert.Equal(t, discordgo.SecondaryButton, got[Repeat].Style)
	assert.False(t, got[VolumeUp].Disabled)
	assert.False(t, got[VolumeDown].Disabled)
}

func TestRow_PausedWithRepeatAtFullVolume(t *testing.T) {
	got := buttons(t, Row(music.Status{Playback: music.PlaybackPaused, Repeat: true, Volume: 1}))

	assert.Equal(t, "재개", got[PauseResume].Label)
	assert.Equal(t, discordgo.PrimaryButton, got[PauseResume].Style)
	assert.Equal(t, discordgo.SuccessButton, got[Repeat].Style)
	assert.True(t, got[VolumeUp].Disabled)
}

func TestRow_IdleDisablesPlaybackButtons(t *testing.T) {
	got := buttons(t, Row(music.Status{Playback: music.PlaybackIdle}))

	assert.True(t, got[PauseResume].Disabled)
	assert.True(t, got[Skip].Disabled)
	assert.True(t, got[VolumeDown].Disabled)
	assert.False(t, got[Repeat].Disabled)
}

func TestComponents(t *testing.T) {
	components := Components("▶️ 재생을 시작합니다: Song", music.Status{
		Playback:    music.PlaybackPlaying,
		Volume:      0.35,
		Repeat:      true,
		QueueLength: 3,
	})

	require.Len(t, components, 1)
	container, ok := components[0].(discordgo.Container)
	require.True(t, ok)
	require.Len(t, container.Components, 4)

	assert.Equal(t, discordgo.TextDisplay{Content: "▶️ 재생을 시작합니다: Song"}, container.Components[0])
	assert.Equal(t, discordgo.TextDisplay{Content: "-# 🔊 35% · 🔂 켜짐 · 대기열 3곡"}, container.Components[1])
	_, ok = container.Components[3].(discordgo.ActionsRow)
	assert.True(t, ok)
}
