package resolver

import (
	"strings"
)

// EpisodeSeparator joins the anime and episode ids into the compound id the
// resolver's stream command expects.
const EpisodeSeparator = ","

// EpisodeRef identifies one episode of one catalog entry.
type EpisodeRef struct {
	AnimeID   string `json:"animeId"`
	EpisodeID string `json:"episodeId"`
}

// Validate rejects refs that cannot be encoded unambiguously.
func (r EpisodeRef) Validate() error {
	if strings.TrimSpace(r.AnimeID) == "" {
		return &ValidationError{Field: "animeId", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.EpisodeID) == "" {
		return &ValidationError{Field: "episodeId", Reason: "must not be empty"}
	}
	if strings.Contains(r.AnimeID, EpisodeSeparator) {
		return &ValidationError{Field: "animeId", Reason: "must not contain " + EpisodeSeparator}
	}
	if strings.Contains(r.EpisodeID, EpisodeSeparator) {
		return &ValidationError{Field: "episodeId", Reason: "must not contain " + EpisodeSeparator}
	}
	return nil
}

// Compound returns "{animeId},{episodeId}".
func (r EpisodeRef) Compound() string {
	return r.AnimeID + EpisodeSeparator + r.EpisodeID
}

func (r EpisodeRef) String() string { return r.Compound() }

// ParseEpisodeRef splits a compound id. Exactly one separator and two
// non-empty halves are required.
func ParseEpisodeRef(compound string) (EpisodeRef, error) {
	parts := strings.Split(compound, EpisodeSeparator)
	if len(parts) != 2 {
		return EpisodeRef{}, &ValidationError{
			Field:  "episodeId",
			Reason: "expected 'animeId" + EpisodeSeparator + "episodeId'",
		}
	}
	ref := EpisodeRef{AnimeID: parts[0], EpisodeID: parts[1]}
	if err := ref.Validate(); err != nil {
		return EpisodeRef{}, err
	}
	return ref, nil
}
