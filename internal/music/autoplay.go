package music

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/hxnx/melodybot/internal/logger"
)

// TrackResolver is satisfied by *Resolver.
type TrackResolver interface {
	Resolve(ctx context.Context, query string) (Track, error)
}

// DefaultCategories returns the built-in autoplay keyword pools.
func DefaultCategories() map[string][]string {
	return map[string][]string{
		"日文流行": {
			"J-Pop hits",
			"Japanese idol songs",
			"Anime theme songs",
			"Tokyo pop tunes",
			"日本流行樂",
			"日本偶像音樂",
			"動漫主題曲",
			"東京流行旋律",
			"和風流行曲",
		},
		"英文流行": {
			"Top Billboard hits",
			"US pop charts",
			"Global pop anthems",
			"Modern pop tunes",
			"Western chart toppers",
			"American pop hits",
			"Contemporary hits",
			"International pop",
			"Hot radio singles",
		},
		"中文流行": {
			"華語金曲",
			"台灣熱門歌曲",
			"大陸流行音樂",
			"中文排行榜",
			"華語新歌",
			"國語熱門曲",
			"中港台流行曲",
			"華人音樂推薦",
			"中文青春歌曲",
		},
	}
}

// AutoplayRefiller resolves a track from a random keyword of a category.
type AutoplayRefiller struct {
	resolver   TrackResolver
	categories map[string][]string
	pick       func(n int) int
	log        *slog.Logger
}

func NewAutoplayRefiller(resolver TrackResolver, categories map[string][]string) *AutoplayRefiller {
	if len(categories) == 0 {
		categories = DefaultCategories()
	}
	pools := make(map[string][]string, len(categories))
	for name, keywords := range categories {
		kept := make([]string, 0, len(keywords))
		for _, k := range keywords {
			if k = strings.TrimSpace(k); k != "" {
				kept = append(kept, k)
			}
		}
		if len(kept) > 0 {
			pools[name] = kept
		}
	}
	return &AutoplayRefiller{
		resolver:   resolver,
		categories: pools,
		pick:       rand.IntN,
		log:        logger.Component("music"),
	}
}

func (a *AutoplayRefiller) HasCategory(name string) bool {
	_, ok := a.categories[name]
	return ok
}

// Categories lists category names in a stable order.
func (a *AutoplayRefiller) Categories() []string {
	names := make([]string, 0, len(a.categories))
	for name := range a.categories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (a *AutoplayRefiller) Refill(ctx context.Context, category string) (Track, error) {
	pool, ok := a.categories[category]
	if !ok {
		return Track{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	keyword := pool[a.pick(len(pool))]
	a.log.Info("autoplay refill", "category", category, "keyword", keyword)

	track, err := a.resolver.Resolve(ctx, keyword)
	if err != nil {
		return Track{}, err
	}
	track.RequestedBy = "autoplay"
	return track, nil
}
