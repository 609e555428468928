package music

import "time"

// Options tunes the engine. DefaultOptions mirrors the production defaults;
// tests shrink the delays.
type Options struct {
	CacheTTL      time.Duration
	CacheCapacity int

	Profiles     []ResolutionProfile
	ResolveRate  float64
	ResolveBurst int

	MaxConnectRetries    int
	ConnectTimeout       time.Duration
	ConnectRetryDelay    time.Duration
	ConnectRetryDelayCap time.Duration
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration

	MaxPlaybackRetries int
	PlaybackRetryDelay time.Duration

	DefaultVolume  float64
	MaxQueueSize   int
	MaxQueryLength int

	Categories map[string][]string
}

func DefaultOptions() Options {
	return Options{
		CacheTTL:      24 * time.Hour,
		CacheCapacity: 100,

		Profiles:     DefaultProfiles(),
		ResolveRate:  5,
		ResolveBurst: 10,

		MaxConnectRetries:    3,
		ConnectTimeout:       45 * time.Second,
		ConnectRetryDelay:    2 * time.Second,
		ConnectRetryDelayCap: 8 * time.Second,
		MaxReconnectAttempts: 1,
		ReconnectDelay:       20 * time.Second,

		MaxPlaybackRetries: 3,
		PlaybackRetryDelay: 2 * time.Second,

		DefaultVolume:  0.5,
		MaxQueueSize:   50,
		MaxQueryLength: 200,

		Categories: DefaultCategories(),
	}
}

// TranscodeConfig is the persisted ffmpeg record.
type TranscodeConfig struct {
	Executable    string `koanf:"executable"`
	BeforeOptions string `koanf:"before_options"`
	Options       string `koanf:"options"`
}

func DefaultTranscodeConfig() TranscodeConfig {
	return TranscodeConfig{
		Executable:    "ffmpeg",
		BeforeOptions: "-reconnect 1 -reconnect_streamed 1 -reconnect_delay_max 5",
		Options:       "-vn -b:a 128k -bufsize 3072k",
	}
}
