package music

import "time"

// ResolutionProfile is one network/retry bundle used against the lookup
// transport. Profiles are tried in order.
type ResolutionProfile struct {
	Name             string            `koanf:"name"`
	Timeout          time.Duration     `koanf:"timeout"`
	MaxRetries       int               `koanf:"max_retries"`
	BackoffBase      time.Duration     `koanf:"backoff_base"`
	BackoffCap       time.Duration     `koanf:"backoff_cap"`
	SocketTimeout    time.Duration     `koanf:"socket_timeout"`
	ExtractorRetries int               `koanf:"extractor_retries"`
	SearchLimit      int               `koanf:"search_limit"`
	Headers          map[string]string `koanf:"headers"`
}

// Backoff returns the delay before the attempt following the given zero-based attempt.
func (p ResolutionProfile) Backoff(attempt int) time.Duration {
	if p.BackoffBase <= 0 {
		return 0
	}
	d := p.BackoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.BackoffCap > 0 && d >= p.BackoffCap {
			return p.BackoffCap
		}
	}
	if p.BackoffCap > 0 && d > p.BackoffCap {
		return p.BackoffCap
	}
	return d
}

const (
	chromeUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	oldChromeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	crawlerUserAgent   = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

// DefaultProfiles goes from fast to conservative.
func DefaultProfiles() []ResolutionProfile {
	return []ResolutionProfile{
		{
			Name:             "standard",
			Timeout:          75 * time.Second,
			MaxRetries:       3,
			BackoffBase:      time.Second,
			BackoffCap:       10 * time.Second,
			SocketTimeout:    60 * time.Second,
			ExtractorRetries: 5,
			SearchLimit:      5,
			Headers:          map[string]string{"User-Agent": chromeUserAgent},
		},
		{
			Name:             "patient",
			Timeout:          140 * time.Second,
			MaxRetries:       3,
			BackoffBase:      time.Second,
			BackoffCap:       10 * time.Second,
			SocketTimeout:    120 * time.Second,
			ExtractorRetries: 10,
			SearchLimit:      5,
			Headers:          map[string]string{"User-Agent": oldChromeUserAgent},
		},
		{
			Name:             "conservative",
			Timeout:          200 * time.Second,
			MaxRetries:       3,
			BackoffBase:      time.Second,
			BackoffCap:       10 * time.Second,
			SocketTimeout:    180 * time.Second,
			ExtractorRetries: 15,
			SearchLimit:      5,
			Headers:          map[string]string{"User-Agent": crawlerUserAgent},
		},
	}
}
