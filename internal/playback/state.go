package playback

import "errors"

// State is the lifecycle of the episode player.
type State int

const (
	Idle State = iota
	Loading
	Playing
	NoSource
	LoadError
	Unsupported
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case NoSource:
		return "no-source"
	case LoadError:
		return "load-error"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition happens without a new load.
func (s State) Terminal() bool {
	return s == NoSource || s == LoadError || s == Unsupported
}

// Strategy names how a stream is attached to the media element.
type Strategy string

const (
	StrategyNone   Strategy = ""
	StrategyEngine Strategy = "engine"
	StrategyNative Strategy = "native"
)

// HLSMimeType is probed on the media element for native playback.
const HLSMimeType = "application/vnd.apple.mpegurl"

// User-facing messages.
const (
	MsgLoading     = "Loading episode..."
	MsgNoSource    = "No video source was found for this episode."
	MsgLoadError   = "Could not load the episode. The API might be down."
	MsgUnsupported = "Your browser cannot play this stream."
)

// ErrSuperseded is returned by Load when a newer load started (or the
// pipeline was closed) before the stream was resolved. The result was
// discarded.
var ErrSuperseded = errors.New("playback: load superseded by a newer request")

// Snapshot is what the player surface shows.
type Snapshot struct {
	State     State
	AnimeID   string
	EpisodeID string
	Message   string
	StreamURL string
	Strategy  Strategy
	// Started is set once playback was requested on the media element.
	Started bool
	Err     error
}
