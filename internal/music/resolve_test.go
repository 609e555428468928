package music

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupCall struct {
	Query   string
	Profile string
}

type fakeLookup struct {
	mu    sync.Mutex
	calls []lookupCall
	fn    func(call int, query string, profile ResolutionProfile) (LookupResult, error)
}

func (f *fakeLookup) Lookup(_ context.Context, query string, profile ResolutionProfile) (LookupResult, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, lookupCall{Query: query, Profile: profile.Name})
	f.mu.Unlock()
	return f.fn(n, query, profile)
}

func (f *fakeLookup) Calls() []lookupCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]lookupCall(nil), f.calls...)
}

func playable(title string) LookupResult {
	return LookupResult{
		Title:      title,
		Descriptor: StreamDescriptor{URL: "https://media.example/" + title, Duration: 3 * time.Minute},
	}
}

func testProfiles() []ResolutionProfile {
	return []ResolutionProfile{
		{Name: "fast", MaxRetries: 2, BackoffBase: time.Second, BackoffCap: 4 * time.Second},
		{Name: "slow", MaxRetries: 1},
	}
}

func newTestResolver(lookup Lookup, cache *TrackCache) (*Resolver, *[]time.Duration) {
	opts := DefaultOptions()
	opts.Profiles = testProfiles()
	opts.ResolveRate = 0
	r := NewResolver(lookup, cache, opts)

	var slept []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return r, &slept
}

func TestResolver_DirectURL(t *testing.T) {
	lookup := &fakeLookup{fn: func(int, string, ResolutionProfile) (LookupResult, error) {
		return playable("song"), nil
	}}
	r, slept := newTestResolver(lookup, nil)

	track, err := r.Resolve(context.Background(), " https://youtu.be/abc ")
	require.NoError(t, err)
	assert.Equal(t, "song", track.Title)
	assert.Equal(t, "https://youtu.be/abc", track.Query)
	assert.Equal(t, 3*time.Minute, track.Stream.Duration)
	assert.Len(t, lookup.Calls(), 1)
	assert.Empty(t, *slept)
}

func TestResolver_SearchPicksCandidateAndResolvesIt(t *testing.T) {
	lookup := &fakeLookup{fn: func(call int, query string, _ ResolutionProfile) (LookupResult, error) {
		if call == 0 {
			return LookupResult{Candidates: []Candidate{
				{Title: "first", URL: "https://v/1"},
				{Title: "second", URL: "https://v/2"},
				{Title: "third", URL: "https://v/3"},
			}}, nil
		}
		res := playable("")
		res.Descriptor.WebpageURL = query
		return res, nil
	}}
	r, _ := newTestResolver(lookup, nil)
	r.pick = func(n int) int {
		assert.Equal(t, 3, n)
		return 1
	}

	track, err := r.Resolve(context.Background(), "lofi beats")
	require.NoError(t, err)
	assert.Equal(t, "second", track.Title)
	assert.Equal(t, "https://v/2", track.Stream.WebpageURL)

	calls := lookup.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "lofi beats", calls[0].Query)
	assert.Equal(t, "https://v/2", calls[1].Query)
}

func TestResolver_RetriesThenFallsBackToNextProfile(t *testing.T) {
	lookup := &fakeLookup{fn: func(_ int, _ string, profile ResolutionProfile) (LookupResult, error) {
		if profile.Name == "fast" {
			return LookupResult{}, errors.New("http 429")
		}
		return playable("rescued"), nil
	}}
	r, slept := newTestResolver(lookup, nil)

	track, err := r.Resolve(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, "rescued", track.Title)

	assert.Equal(t, []lookupCall{
		{Query: "query", Profile: "fast"},
		{Query: "query", Profile: "fast"},
		{Query: "query", Profile: "slow"},
	}, lookup.Calls())
	// one backoff between the two fast attempts, none across profiles
	assert.Equal(t, []time.Duration{time.Second}, *slept)
}

func TestResolver_AllProfilesFail(t *testing.T) {
	lookup := &fakeLookup{fn: func(int, string, ResolutionProfile) (LookupResult, error) {
		return LookupResult{}, errors.New("unavailable")
	}}
	r, _ := newTestResolver(lookup, nil)

	_, err := r.Resolve(context.Background(), "query")
	assert.ErrorIs(t, err, ErrResolutionFailure)
	assert.Len(t, lookup.Calls(), 3)
}

func TestResolver_IncompleteDescriptorIsAFailure(t *testing.T) {
	lookup := &fakeLookup{fn: func(int, string, ResolutionProfile) (LookupResult, error) {
		return LookupResult{Title: "no stream"}, nil
	}}
	r, _ := newTestResolver(lookup, nil)

	_, err := r.Resolve(context.Background(), "query")
	assert.ErrorIs(t, err, ErrResolutionFailure)
}

func TestResolver_CacheHitSkipsLookup(t *testing.T) {
	cache := NewTrackCache("", time.Hour, 10)
	lookup := &fakeLookup{fn: func(int, string, ResolutionProfile) (LookupResult, error) {
		return playable("fresh"), nil
	}}
	r, _ := newTestResolver(lookup, cache)

	first, err := r.Resolve(context.Background(), "Some Song")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "some   song")
	require.NoError(t, err)

	assert.Equal(t, first.Title, second.Title)
	assert.Len(t, lookup.Calls(), 1)
	assert.Equal(t, 1, cache.Len())
}

func TestResolver_EmptyQuery(t *testing.T) {
	r, _ := newTestResolver(&fakeLookup{}, nil)
	_, err := r.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestResolver_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lookup := &fakeLookup{fn: func(int, string, ResolutionProfile) (LookupResult, error) {
		cancel()
		return LookupResult{}, context.Canceled
	}}
	r, _ := newTestResolver(lookup, nil)

	_, err := r.Resolve(ctx, "query")
	assert.ErrorIs(t, err, ErrResolutionFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, lookup.Calls(), 1)
}

func TestLooksLikeURL(t *testing.T) {
	assert.True(t, looksLikeURL("https://www.youtube.com/watch?v=x"))
	assert.True(t, looksLikeURL("http://a.b"))
	assert.False(t, looksLikeURL("lofi beats"))
	assert.False(t, looksLikeURL("ytsearch:abc"))
}
