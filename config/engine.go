package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hxnx/melodybot/internal/music"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EngineConfig is the music.toml file. Every field has a default; missing
// keys keep it.
type EngineConfig struct {
	Cache     CacheConfig           `koanf:"cache"`
	Resolver  ResolverConfig        `koanf:"resolver"`
	Voice     VoiceConfig           `koanf:"voice"`
	Playback  PlaybackConfig        `koanf:"playback"`
	Autoplay  AutoplayConfig        `koanf:"autoplay"`
	Transcode music.TranscodeConfig `koanf:"transcode"`
}

type CacheConfig struct {
	TTL      time.Duration `koanf:"ttl"`
	Capacity int           `koanf:"capacity"`
}

type ResolverConfig struct {
	Rate     float64                   `koanf:"rate"`  // lookups per second across all guilds
	Burst    int                       `koanf:"burst"` // 0 means 1
	YTDLP    string                    `koanf:"ytdlp"` // yt-dlp executable, empty uses PATH
	Profiles []music.ResolutionProfile `koanf:"profiles"`
}

type VoiceConfig struct {
	ConnectRetries    int           `koanf:"connect_retries"`
	ConnectTimeout    time.Duration `koanf:"connect_timeout"`
	RetryDelay        time.Duration `koanf:"retry_delay"`
	RetryDelayCap     time.Duration `koanf:"retry_delay_cap"`
	ReconnectAttempts int           `koanf:"reconnect_attempts"`
	ReconnectDelay    time.Duration `koanf:"reconnect_delay"`
}

type PlaybackConfig struct {
	Retries        int           `koanf:"retries"`
	RetryDelay     time.Duration `koanf:"retry_delay"`
	DefaultVolume  float64       `koanf:"default_volume"` // 0.0-1.0
	MaxQueueSize   int           `koanf:"max_queue_size"`
	MaxQueryLength int           `koanf:"max_query_length"`
}

type AutoplayConfig struct {
	Categories map[string][]string `koanf:"categories"`
}

func DefaultEngineConfig() EngineConfig {
	opts := music.DefaultOptions()
	return EngineConfig{
		Cache: CacheConfig{
			TTL:      opts.CacheTTL,
			Capacity: opts.CacheCapacity,
		},
		Resolver: ResolverConfig{
			Rate:     opts.ResolveRate,
			Burst:    opts.ResolveBurst,
			Profiles: opts.Profiles,
		},
		Voice: VoiceConfig{
			ConnectRetries:    opts.MaxConnectRetries,
			ConnectTimeout:    opts.ConnectTimeout,
			RetryDelay:        opts.ConnectRetryDelay,
			RetryDelayCap:     opts.ConnectRetryDelayCap,
			ReconnectAttempts: opts.MaxReconnectAttempts,
			ReconnectDelay:    opts.ReconnectDelay,
		},
		Playback: PlaybackConfig{
			Retries:        opts.MaxPlaybackRetries,
			RetryDelay:     opts.PlaybackRetryDelay,
			DefaultVolume:  opts.DefaultVolume,
			MaxQueueSize:   opts.MaxQueueSize,
			MaxQueryLength: opts.MaxQueryLength,
		},
		Autoplay: AutoplayConfig{
			Categories: opts.Categories,
		},
		Transcode: music.DefaultTranscodeConfig(),
	}
}

// LoadEngine reads the given files in order; later files win. Missing files
// are skipped. On a parse error the defaults are returned together with the
// error so the caller can warn and carry on.
func LoadEngine(paths []string) (EngineConfig, error) {
	defaults := DefaultEngineConfig()

	k := koanf.New(".")
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return defaults, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg := DefaultEngineConfig()
	// Slices and maps are replaced wholesale rather than merged.
	cfg.Resolver.Profiles = nil
	cfg.Autoplay.Categories = nil

	if err := k.Unmarshal("", &cfg); err != nil {
		return defaults, fmt.Errorf("invalid engine config: %w", err)
	}
	if len(cfg.Resolver.Profiles) == 0 {
		cfg.Resolver.Profiles = defaults.Resolver.Profiles
	}
	if len(cfg.Autoplay.Categories) == 0 {
		cfg.Autoplay.Categories = defaults.Autoplay.Categories
	}

	cfg.Validate()
	return cfg, nil
}

// LoadTranscode reads only the transcode record, falling back to defaults.
func LoadTranscode(paths []string) (music.TranscodeConfig, error) {
	cfg, err := LoadEngine(paths)
	return cfg.Transcode, err
}

// Validate clamps out-of-range values back to their defaults.
func (c *EngineConfig) Validate() {
	d := DefaultEngineConfig()

	if c.Cache.TTL <= 0 {
		c.Cache.TTL = d.Cache.TTL
	}
	if c.Cache.Capacity < 1 {
		c.Cache.Capacity = d.Cache.Capacity
	}

	if c.Resolver.Rate < 0 {
		c.Resolver.Rate = d.Resolver.Rate
	}
	if c.Resolver.Burst < 1 {
		c.Resolver.Burst = 1
	}
	for i := range c.Resolver.Profiles {
		p := &c.Resolver.Profiles[i]
		if p.Name == "" {
			p.Name = fmt.Sprintf("profile-%d", i+1)
		}
		if p.MaxRetries < 1 {
			p.MaxRetries = 1
		}
		if p.Timeout <= 0 {
			p.Timeout = d.Resolver.Profiles[0].Timeout
		}
		if p.SearchLimit < 1 {
			p.SearchLimit = d.Resolver.Profiles[0].SearchLimit
		}
		if p.BackoffCap > 0 && p.BackoffBase > p.BackoffCap {
			p.BackoffBase = p.BackoffCap
		}
	}

	if c.Voice.ConnectRetries < 1 {
		c.Voice.ConnectRetries = d.Voice.ConnectRetries
	}
	if c.Voice.ConnectTimeout <= 0 {
		c.Voice.ConnectTimeout = d.Voice.ConnectTimeout
	}
	if c.Voice.RetryDelay < 0 {
		c.Voice.RetryDelay = d.Voice.RetryDelay
	}
	if c.Voice.RetryDelayCap < c.Voice.RetryDelay {
		c.Voice.RetryDelayCap = c.Voice.RetryDelay
	}
	if c.Voice.ReconnectAttempts < 0 {
		c.Voice.ReconnectAttempts = d.Voice.ReconnectAttempts
	}
	if c.Voice.ReconnectDelay < 0 {
		c.Voice.ReconnectDelay = d.Voice.ReconnectDelay
	}

	if c.Playback.Retries < 1 {
		c.Playback.Retries = d.Playback.Retries
	}
	if c.Playback.RetryDelay < 0 {
		c.Playback.RetryDelay = d.Playback.RetryDelay
	}
	if c.Playback.DefaultVolume < 0 || c.Playback.DefaultVolume > 1 {
		c.Playback.DefaultVolume = d.Playback.DefaultVolume
	}
	if c.Playback.MaxQueueSize < 1 {
		c.Playback.MaxQueueSize = d.Playback.MaxQueueSize
	}
	if c.Playback.MaxQueryLength < 1 {
		c.Playback.MaxQueryLength = d.Playback.MaxQueryLength
	}

	c.Transcode.Executable = strings.TrimSpace(c.Transcode.Executable)
	if c.Transcode.Executable == "" {
		c.Transcode.Executable = d.Transcode.Executable
	}
}

// Options converts the file into engine options.
func (c EngineConfig) Options() music.Options {
	opts := music.DefaultOptions()

	opts.CacheTTL = c.Cache.TTL
	opts.CacheCapacity = c.Cache.Capacity

	opts.Profiles = c.Resolver.Profiles
	opts.ResolveRate = c.Resolver.Rate
	opts.ResolveBurst = c.Resolver.Burst

	opts.MaxConnectRetries = c.Voice.ConnectRetries
	opts.ConnectTimeout = c.Voice.ConnectTimeout
	opts.ConnectRetryDelay = c.Voice.RetryDelay
	opts.ConnectRetryDelayCap = c.Voice.RetryDelayCap
	opts.MaxReconnectAttempts = c.Voice.ReconnectAttempts
	opts.ReconnectDelay = c.Voice.ReconnectDelay

	opts.MaxPlaybackRetries = c.Playback.Retries
	opts.PlaybackRetryDelay = c.Playback.RetryDelay
	opts.DefaultVolume = c.Playback.DefaultVolume
	opts.MaxQueueSize = c.Playback.MaxQueueSize
	opts.MaxQueryLength = c.Playback.MaxQueryLength

	opts.Categories = c.Autoplay.Categories
	return opts
}
