package music

import "errors"

var (
	ErrResolutionFailure = errors.New("failed to resolve track")
	ErrConnectionFailure = errors.New("failed to connect to voice channel")
	ErrTransientPlayback = errors.New("playback stream failed")
	ErrDisconnected      = errors.New("voice connection lost")
	ErrCacheCorruption   = errors.New("song cache file is corrupt")

	ErrMissingInput      = errors.New("input is required")
	ErrQueryTooLong      = errors.New("query is too long")
	ErrNoVoiceChannel    = errors.New("user is not in a voice channel")
	ErrNotConnected      = errors.New("voice connection not established")
	ErrNothingPlaying    = errors.New("nothing is playing")
	ErrNotPaused         = errors.New("playback is not paused")
	ErrInvalidVolume     = errors.New("volume must be between 1 and 100")
	ErrUnknownCategory   = errors.New("unknown autoplay category")
	ErrQueueFull         = errors.New("queue is full")
	ErrPlaybackCancelled = errors.New("playback cancelled")
)
