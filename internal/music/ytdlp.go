package music

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

var errLookupEmpty = errors.New("yt-dlp returned no usable entries")

// YTDLPLookup implements Lookup on top of the yt-dlp binary.
type YTDLPLookup struct {
	Binary string
}

func NewYTDLPLookup(binary string) *YTDLPLookup {
	return &YTDLPLookup{Binary: binary}
}

func (l *YTDLPLookup) Lookup(ctx context.Context, query string, profile ResolutionProfile) (LookupResult, error) {
	target := strings.TrimSpace(query)
	if target == "" {
		return LookupResult{}, ErrMissingInput
	}

	search := !looksLikeURL(target)
	if search {
		target = fmt.Sprintf("ytsearch%d:%s", max(profile.SearchLimit, 1), target)
	}

	cmd := ytdlp.New().
		DumpSingleJSON().
		SkipDownload().
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Format("bestaudio/best")
	if search {
		cmd = cmd.FlatPlaylist()
	}
	if profile.SocketTimeout > 0 {
		cmd = cmd.SocketTimeout(profile.SocketTimeout.Seconds())
	}
	if profile.ExtractorRetries > 0 {
		cmd = cmd.Retries(strconv.Itoa(profile.ExtractorRetries))
	}
	for name, value := range profile.Headers {
		cmd = cmd.AddHeaders(name + ":" + value)
	}
	if l.Binary != "" {
		cmd = cmd.SetExecutable(l.Binary)
	}

	res, err := cmd.Run(ctx, target)
	if err != nil {
		return LookupResult{}, fmt.Errorf("yt-dlp failed: %w", err)
	}

	return parseYTDLPOutput([]byte(res.Stdout))
}

type ytDLPItem struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	WebpageURL  string            `json:"webpage_url"`
	URL         string            `json:"url"`
	Duration    float64           `json:"duration"`
	HTTPHeaders map[string]string `json:"http_headers"`
	Entries     []ytDLPItem       `json:"entries"`
}

func parseYTDLPOutput(output []byte) (LookupResult, error) {
	var root ytDLPItem
	if err := json.Unmarshal(output, &root); err != nil {
		return LookupResult{}, fmt.Errorf("invalid yt-dlp json: %w", err)
	}

	if len(root.Entries) > 0 {
		candidates := make([]Candidate, 0, len(root.Entries))
		for _, entry := range root.Entries {
			link := entry.WebpageURL
			if link == "" {
				link = entry.URL
			}
			if link == "" {
				continue
			}
			candidates = append(candidates, Candidate{Title: strings.TrimSpace(entry.Title), URL: link})
		}
		if len(candidates) == 0 {
			return LookupResult{}, errLookupEmpty
		}
		return LookupResult{Title: root.Title, Candidates: candidates}, nil
	}

	if root.URL == "" {
		return LookupResult{}, errLookupEmpty
	}

	duration := time.Duration(root.Duration * float64(time.Second))
	if duration < 0 {
		duration = 0
	}

	return LookupResult{
		Title: strings.TrimSpace(root.Title),
		Descriptor: StreamDescriptor{
			URL:        root.URL,
			WebpageURL: root.WebpageURL,
			Duration:   duration,
			Headers:    root.HTTPHeaders,
		},
	}, nil
}
