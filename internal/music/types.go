package music

import "time"

// StreamDescriptor is what the transcoder needs to open a track.
type StreamDescriptor struct {
	URL        string            `json:"url"`
	WebpageURL string            `json:"webpage_url,omitempty"`
	Duration   time.Duration     `json:"duration"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Complete reports whether the descriptor can be handed to the transcoder.
func (d StreamDescriptor) Complete() bool {
	return d.URL != ""
}

type Track struct {
	Title       string           `json:"title"`
	Query       string           `json:"query"`
	Stream      StreamDescriptor `json:"stream"`
	RequestedBy string           `json:"requested_by,omitempty"`
}

type PlaybackStatus string

const (
	PlaybackIdle    PlaybackStatus = "idle"
	PlaybackPlaying PlaybackStatus = "playing"
	PlaybackPaused  PlaybackStatus = "paused"
)

type ConnState string

const (
	ConnDisconnected ConnState = "disconnected"
	ConnConnecting   ConnState = "connecting"
	ConnConnected    ConnState = "connected"
	ConnMoving       ConnState = "moving"
	ConnUnstable     ConnState = "unstable"
)

// Status is a point-in-time view of one guild's player.
type Status struct {
	GuildID           string
	Playback          PlaybackStatus
	Connection        ConnState
	ChannelID         string
	Current           *Track
	QueueLength       int
	Repeat            bool
	Volume            float64
	Autoplay          bool
	Category          string
	RetryCount        int
	ReconnectAttempts int
	LastDisconnectAt  time.Time
	CacheSize         int
	TranscodeBinary   string
}

// PlayRequest carries the caller context of a play or autoplay command.
type PlayRequest struct {
	Query          string
	VoiceChannelID string
	TextChannelID  string
	RequestedBy    string
}

type PlayResult struct {
	Track    Track
	Started  bool
	Position int
}
