package queueview

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hxnx/melodybot/internal/music"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotWith(n int) music.StateSnapshot {
	snap := music.StateSnapshot{}
	for i := 1; i <= n; i++ {
		snap.Queue = append(snap.Queue, music.Track{Title: fmt.Sprintf("song %d", i)})
	}
	return snap
}

func textOf(t *testing.T, components []discordgo.MessageComponent) []string {
	t.Helper()
	require.Len(t, components, 1)
	container, ok := components[0].(discordgo.Container)
	require.True(t, ok)

	var texts []string
	for _, c := range container.Components {
		if td, ok := c.(discordgo.TextDisplay); ok {
			texts = append(texts, td.Content)
		}
	}
	return texts
}

func TestBuildQueueComponents_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		page      int
		perPage   int
		wantPage  int
		wantPages int
		wantStart int
		wantEnd   int
	}{
		{"first page", 23, 1, 10, 1, 3, 0, 10},
		{"last page", 23, 3, 10, 3, 3, 20, 23},
		{"page past end", 23, 9, 10, 3, 3, 20, 23},
		{"empty queue", 0, 1, 10, 1, 1, 0, 0},
		{"default per page", 15, 2, 0, 2, 2, 10, 15},
		{"per page capped", 60, 1, 100, 1, 3, 0, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, info := BuildQueueComponents(snapshotWith(tt.total), tt.page, tt.perPage)
			assert.Equal(t, tt.wantPage, info.Page)
			assert.Equal(t, tt.wantPages, info.TotalPages)
			assert.Equal(t, tt.wantStart, info.StartIndex)
			assert.Equal(t, tt.wantEnd, info.EndIndex)
			assert.Equal(t, tt.total, info.TotalItems)
		})
	}
}

func TestBuildQueueComponents_Content(t *testing.T) {
	snap := snapshotWith(12)
	snap.Current = &music.Track{Title: "now"}
	snap.Repeat = true
	snap.Autoplay = true
	snap.Category = "日文流行"

	components, _ := BuildQueueComponents(snap, 2, 10)
	texts := textOf(t, components)

	assert.Contains(t, texts[1], "now")
	assert.Contains(t, texts[1], "🔂 반복")
	assert.Contains(t, texts[1], "📻 자동재생: 日文流行")
	assert.Equal(t, "페이지 **2/2** · 전체 **12곡**", texts[2])
	assert.Equal(t, "11. song 11\n12. song 12", texts[3])

	components, _ = BuildQueueComponents(music.StateSnapshot{}, 1, 10)
	texts = textOf(t, components)
	assert.Contains(t, texts[1], "없음")
	assert.Equal(t, "대기열이 비어 있습니다.", texts[3])
}

func TestTrackLine(t *testing.T) {
	track := music.Track{
		Title: "  Song  ",
		Stream: music.StreamDescriptor{
			WebpageURL: "https://www.youtube.com/watch?v=abc",
			Duration:   3*time.Minute + 5*time.Second,
		},
	}
	assert.Equal(t, "[Song](https://www.youtube.com/watch?v=abc) `3:05`", TrackLine(track))
	assert.Equal(t, "알 수 없는 제목", TrackLine(music.Track{}))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", FormatDuration(-4))
	assert.Equal(t, "0:59", FormatDuration(59.9))
	assert.Equal(t, "12:00", FormatDuration(720))
	assert.Equal(t, "1:01:01", FormatDuration(3661))
}

func TestQueuePageCustomID(t *testing.T) {
	id := MakeQueuePageCustomID(3, 10)
	assert.Equal(t, "music_queue_page:3:10", id)

	page, perPage, ok := ParseQueuePageCustomID(id)
	require.True(t, ok)
	assert.Equal(t, 3, page)
	assert.Equal(t, 10, perPage)

	assert.Equal(t, "music_queue_page:1:25", MakeQueuePageCustomID(0, 99))

	for _, bad := range []string{"", "music_queue_page", "music_queue_page:0:10", "music_queue_page:a:10", "music_queue_page:1", "other:1:10"} {
		_, _, ok := ParseQueuePageCustomID(bad)
		assert.False(t, ok, bad)
	}
}
