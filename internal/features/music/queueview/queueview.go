package queueview

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/hxnx/melodybot/internal/music"
)

const (
	CustomIDPrefix = "music_queue_page"
	DefaultPerPage = 10
	MaxPerPage     = 25
)

type PageInfo struct {
	Page       int
	PerPage    int
	TotalItems int
	TotalPages int
	StartIndex int
	EndIndex   int
}

// BuildQueueComponents renders one page of snap's queue, headed by the
// current track and the repeat/autoplay flags.
func BuildQueueComponents(snap music.StateSnapshot, page int, perPage int) ([]discordgo.MessageComponent, PageInfo) {
	items := snap.Queue
	total := len(items)
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	perPage = clamp(perPage, 1, MaxPerPage)
	totalPages := max(1, int(math.Ceil(float64(total)/float64(perPage))))
	page = clamp(page, 1, totalPages)

	start := (page - 1) * perPage
	end := min(start+perPage, total)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, TrackLine(items[i])))
	}

	listContent := "대기열이 비어 있습니다."
	if len(lines) > 0 {
		listContent = strings.Join(lines, "\n")
	}

	info := PageInfo{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
		StartIndex: start,
		EndIndex:   end,
	}

	divider := true
	spacing := discordgo.SeparatorSpacingSizeSmall
	accent := 0xC9A0FF

	components := []discordgo.MessageComponent{
		discordgo.Container{
			AccentColor: &accent,
			Components: []discordgo.MessageComponent{
				discordgo.TextDisplay{Content: "📋 **대기열**"},
				discordgo.TextDisplay{Content: headerLine(snap)},
				discordgo.TextDisplay{Content: fmt.Sprintf("페이지 **%d/%d** · 전체 **%s곡**", page, totalPages, humanize.Comma(int64(total)))},
				discordgo.Separator{Divider: &divider, Spacing: &spacing},
				discordgo.TextDisplay{Content: listContent},
				discordgo.Separator{Divider: &divider, Spacing: &spacing},
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Style:    discordgo.SecondaryButton,
							Label:    "이전",
							CustomID: MakeQueuePageCustomID(page-1, perPage),
							Disabled: page <= 1,
						},
						discordgo.Button{
							Style:    discordgo.SecondaryButton,
							Label:    "다음",
							CustomID: MakeQueuePageCustomID(page+1, perPage),
							Disabled: page >= totalPages,
						},
					},
				},
			},
		},
	}

	return components, info
}

func headerLine(snap music.StateSnapshot) string {
	current := "없음"
	if snap.Current != nil {
		current = TrackLine(*snap.Current)
	}

	flags := make([]string, 0, 2)
	if snap.Repeat {
		flags = append(flags, "🔂 반복")
	}
	if snap.Autoplay && snap.Category != "" {
		flags = append(flags, "📻 자동재생: "+snap.Category)
	}

	line := "🎶 지금 재생 중: " + current
	if len(flags) > 0 {
		line += "\n" + strings.Join(flags, " · ")
	}
	return line
}

// TrackLine formats a track as a markdown link with its length.
func TrackLine(t music.Track) string {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		title = "알 수 없는 제목"
	}

	line := title
	if url := t.Stream.WebpageURL; url != "" {
		line = fmt.Sprintf("[%s](%s)", title, url)
	}
	if t.Stream.Duration > 0 {
		line += " `" + FormatDuration(t.Stream.Duration.Seconds()) + "`"
	}
	return line
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func MakeQueuePageCustomID(page int, perPage int) string {
	if page < 1 {
		page = 1
	}
	perPage = clamp(perPage, 1, MaxPerPage)
	return fmt.Sprintf("%s:%d:%d", CustomIDPrefix, page, perPage)
}

func ParseQueuePageCustomID(customID string) (page int, perPage int, ok bool) {
	if !strings.HasPrefix(customID, CustomIDPrefix+":") {
		return 0, 0, false
	}

	parts := strings.Split(customID, ":")
	if len(parts) != 3 {
		return 0, 0, false
	}

	pageVal, err := strconv.Atoi(parts[1])
	if err != nil || pageVal < 1 {
		return 0, 0, false
	}

	perPageVal, err := strconv.Atoi(parts[2])
	if err != nil || perPageVal < 1 {
		return 0, 0, false
	}

	return pageVal, clamp(perPageVal, 1, MaxPerPage), true
}

func clamp(value, minValue, maxValue int) int {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}
	return value
}
