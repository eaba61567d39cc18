package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Catalog structures emitted by the resolver and relayed verbatim by the gateway.

type RecentEntry struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Image        string `json:"image"`
	EpisodeTitle string `json:"episode_title"`
}

type SearchResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Image string `json:"image"`
}

type AnimeDetails struct {
	Title       string    `json:"title"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	Episodes    []Episode `json:"episodes"`
	Error       string    `json:"error,omitempty"`
}

type Episode struct {
	ID     string        `json:"id"`
	Number EpisodeNumber `json:"number"`
	Title  string        `json:"title,omitempty"`
}

// EpisodeNumber accepts both numeric and string episode indexes; upstream
// sources are inconsistent about which one they send.
type EpisodeNumber string

func (n *EpisodeNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = EpisodeNumber(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = EpisodeNumber(num.String())
	return nil
}

func (n EpisodeNumber) MarshalJSON() ([]byte, error) {
	if i, err := strconv.Atoi(string(n)); err == nil {
		return []byte(strconv.Itoa(i)), nil
	}
	return json.Marshal(string(n))
}

func (n EpisodeNumber) String() string { return string(n) }

// StreamDescriptor is the stream resolution result. At most one of StreamURL
// and Error is meaningful; neither set means no source was found.
type StreamDescriptor struct {
	StreamURL string `json:"streamUrl,omitempty"`
	Error     string `json:"error,omitempty"`
}

// UnmarshalJSON also accepts the snake_case key written by older resolvers.
func (d *StreamDescriptor) UnmarshalJSON(data []byte) error {
	var raw struct {
		StreamURL       *string `json:"streamUrl"`
		LegacyStreamURL *string `json:"stream_url"`
		Error           *string `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = StreamDescriptor{}
	switch {
	case raw.StreamURL != nil:
		d.StreamURL = strings.TrimSpace(*raw.StreamURL)
	case raw.LegacyStreamURL != nil:
		d.StreamURL = strings.TrimSpace(*raw.LegacyStreamURL)
	}
	if raw.Error != nil {
		d.Error = strings.TrimSpace(*raw.Error)
	}
	return nil
}

// HasSource reports whether the descriptor carries a playable URL.
func (d StreamDescriptor) HasSource() bool {
	return d.Error == "" && d.StreamURL != ""
}

// ErrorResponse is the body of every gateway failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
