package music

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/hxnx/melodybot/internal/logger"
	"golang.org/x/time/rate"
)

// Candidate is one search hit. Search hits are not playable by themselves.
type Candidate struct {
	Title string
	URL   string
}

// LookupResult holds either candidates or a playable descriptor.
type LookupResult struct {
	Title      string
	Descriptor StreamDescriptor
	Candidates []Candidate
}

// Lookup is the external search/lookup transport.
type Lookup interface {
	Lookup(ctx context.Context, query string, profile ResolutionProfile) (LookupResult, error)
}

// Resolver turns a raw query into a playable Track. It is safe for concurrent
// use by every guild.
type Resolver struct {
	lookup   Lookup
	cache    *TrackCache
	profiles []ResolutionProfile
	limiter  *rate.Limiter
	sleep    func(ctx context.Context, d time.Duration) error
	pick     func(n int) int
	log      *slog.Logger
}

func NewResolver(lookup Lookup, cache *TrackCache, opts Options) *Resolver {
	profiles := opts.Profiles
	if len(profiles) == 0 {
		profiles = DefaultProfiles()
	}

	limit := rate.Inf
	if opts.ResolveRate > 0 {
		limit = rate.Limit(opts.ResolveRate)
	}
	burst := opts.ResolveBurst
	if burst < 1 {
		burst = 1
	}

	return &Resolver{
		lookup:   lookup,
		cache:    cache,
		profiles: profiles,
		limiter:  rate.NewLimiter(limit, burst),
		sleep:    sleepContext,
		pick:     rand.IntN,
		log:      logger.Component("music"),
	}
}

func (r *Resolver) Resolve(ctx context.Context, query string) (Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Track{}, ErrMissingInput
	}

	if r.cache != nil {
		if track, ok := r.cache.Get(query); ok {
			r.log.Debug("song cache hit", "query", query, "title", track.Title)
			return track, nil
		}
	}

	var lastErr error
	for idx, profile := range r.profiles {
		attempts := max(profile.MaxRetries, 1)
		for attempt := 0; attempt < attempts; attempt++ {
			track, err := r.attempt(ctx, query, profile)
			if err == nil {
				track.Query = query
				if r.cache != nil {
					r.cache.Set(query, track)
				}
				r.log.Info("resolved track", "title", track.Title, "profile", profile.Name)
				return track, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Track{}, fmt.Errorf("%w: %w", ErrResolutionFailure, ctxErr)
			}

			lastErr = err
			r.log.Warn("lookup attempt failed",
				"profile", profile.Name,
				"profile_index", idx+1,
				"attempt", attempt+1,
				"error", err)

			if attempt < attempts-1 {
				if err := r.sleep(ctx, profile.Backoff(attempt)); err != nil {
					return Track{}, fmt.Errorf("%w: %w", ErrResolutionFailure, err)
				}
			}
		}
	}

	r.log.Error("all lookup attempts failed", "query", query)
	if lastErr == nil {
		return Track{}, ErrResolutionFailure
	}
	return Track{}, fmt.Errorf("%w: %v", ErrResolutionFailure, lastErr)
}

func (r *Resolver) attempt(ctx context.Context, query string, profile ResolutionProfile) (Track, error) {
	if profile.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, profile.Timeout)
		defer cancel()
	}

	res, err := r.lookupLimited(ctx, query, profile)
	if err != nil {
		return Track{}, err
	}

	if len(res.Candidates) > 0 {
		candidate := res.Candidates[r.pick(len(res.Candidates))]
		if candidate.URL == "" {
			return Track{}, errors.New("search result has no url")
		}
		full, err := r.lookupLimited(ctx, candidate.URL, profile)
		if err != nil {
			return Track{}, fmt.Errorf("resolve search result: %w", err)
		}
		if full.Title == "" {
			full.Title = candidate.Title
		}
		res = full
	}

	if !res.Descriptor.Complete() {
		return Track{}, errors.New("lookup returned no playable stream")
	}

	title := strings.TrimSpace(res.Title)
	if title == "" {
		title = "Unknown Title"
	}
	return Track{Title: title, Stream: res.Descriptor}, nil
}

func (r *Resolver) lookupLimited(ctx context.Context, query string, profile ResolutionProfile) (LookupResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return LookupResult{}, err
	}
	return r.lookup.Lookup(ctx, query, profile)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func looksLikeURL(value string) bool {
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return true
	}

	u, err := url.Parse(value)
	return err == nil && u.Scheme != "" && u.Host != ""
}
