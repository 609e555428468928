package commands

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/hxnx/melodybot/internal/features/music/controls"
	"github.com/hxnx/melodybot/internal/features/music/queueview"
	shared "github.com/hxnx/melodybot/internal/features/shared"
	"github.com/hxnx/melodybot/internal/music"
)

func (h *Handler) Queue(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !guildOnly(s, i) {
		return
	}

	perPage := shared.GetOptionInt(options, "limit")
	snap := h.players.Get(i.GuildID).Queue()
	if len(snap.Queue) == 0 && snap.Current == nil {
		shared.RespondEphemeral(s, i, "대기열이 비어 있습니다.")
		return
	}

	components, _ := queueview.BuildQueueComponents(snap, 1, perPage)
	shared.RespondComponents(s, i, components, true)
}

// QueuePage answers a page button on a queue message.
func (h *Handler) QueuePage(s *discordgo.Session, i *discordgo.InteractionCreate, customID string) {
	page, perPage, ok := queueview.ParseQueuePageCustomID(customID)
	if !ok {
		shared.RespondEphemeral(s, i, "유효하지 않은 페이지 요청입니다.")
		return
	}
	if !guildOnly(s, i) {
		return
	}

	snap := h.players.Get(i.GuildID).Queue()
	components, _ := queueview.BuildQueueComponents(snap, page, perPage)

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Components: components,
			Flags:      discordgo.MessageFlagsIsComponentsV2,
		},
	})
	if err != nil {
		h.log.Warn("queue page update failed", "guild_id", i.GuildID, "error", err)
	}
}

func (h *Handler) NowPlaying(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !guildOnly(s, i) {
		return
	}

	p := h.players.Get(i.GuildID)
	track, position, err := p.NowPlaying()
	if err != nil {
		shared.RespondEphemeral(s, i, errorMessage(err))
		return
	}

	progress := queueview.FormatDuration(position.Seconds())
	if track.Stream.Duration > 0 {
		progress += " / " + queueview.FormatDuration(track.Stream.Duration.Seconds())
	}

	lines := []string{
		"🎶 " + queueview.TrackLine(track),
		"⏱️ " + progress,
	}
	if track.RequestedBy != "" {
		lines = append(lines, "🙋 "+track.RequestedBy)
	}
	shared.RespondComponents(s, i, controls.Components(strings.Join(lines, "\n"), p.Status()), true)
}

func (h *Handler) Status(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !guildOnly(s, i) {
		return
	}

	shared.RespondEphemeral(s, i, StatusMessage(h.players.Status(i.GuildID), time.Now()))
}

var (
	playbackLabels = map[music.PlaybackStatus]string{
		music.PlaybackIdle:    "대기",
		music.PlaybackPlaying: "재생 중",
		music.PlaybackPaused:  "일시정지",
	}
	connectionLabels = map[music.ConnState]string{
		music.ConnDisconnected: "연결 안 됨",
		music.ConnConnecting:   "연결 중",
		music.ConnConnected:    "연결됨",
		music.ConnMoving:       "이동 중",
		music.ConnUnstable:     "불안정",
	}
)

// StatusMessage renders the status command reply.
func StatusMessage(st music.Status, now time.Time) string {
	current := "없음"
	if st.Current != nil {
		current = queueview.TrackLine(*st.Current)
	}

	channel := "-"
	if st.ChannelID != "" {
		channel = fmt.Sprintf("<#%s>", st.ChannelID)
	}

	autoplay := "꺼짐"
	if st.Autoplay && st.Category != "" {
		autoplay = st.Category
	}

	repeat := "꺼짐"
	if st.Repeat {
		repeat = "켜짐"
	}

	lastDrop := "없음"
	if !st.LastDisconnectAt.IsZero() {
		lastDrop = humanize.RelTime(st.LastDisconnectAt, now, "전", "후")
	}

	lines := []string{
		fmt.Sprintf("**재생**: %s", playbackLabels[st.Playback]),
		fmt.Sprintf("**음성 연결**: %s (%s)", connectionLabels[st.Connection], channel),
		fmt.Sprintf("**현재 곡**: %s", current),
		fmt.Sprintf("**대기열**: %s곡", humanize.Comma(int64(st.QueueLength))),
		fmt.Sprintf("**볼륨**: %d%%", int(math.Round(st.Volume*100))),
		fmt.Sprintf("**반복**: %s", repeat),
		fmt.Sprintf("**자동재생**: %s", autoplay),
		fmt.Sprintf("**재시도**: 재생 %d회 · 재연결 %d회", st.RetryCount, st.ReconnectAttempts),
		fmt.Sprintf("**마지막 연결 끊김**: %s", lastDrop),
		fmt.Sprintf("**곡 캐시**: %s개", humanize.Comma(int64(st.CacheSize))),
	}
	if st.TranscodeBinary != "" {
		lines = append(lines, fmt.Sprintf("**트랜스코더**: `%s`", st.TranscodeBinary))
	}
	return strings.Join(lines, "\n")
}
