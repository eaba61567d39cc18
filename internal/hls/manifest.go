package hls

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/grafov/m3u8"
)

const (
	// DefaultAttempts matches the manifest retry budget of browser engines.
	DefaultAttempts   = 3
	defaultRetryDelay = 250 * time.Millisecond
	maxManifestBytes  = 4 << 20
)

// ErrNotPlaylist is returned when the document is not an HLS playlist.
var ErrNotPlaylist = errors.New("hls: not an m3u8 playlist")

// ManifestError describes a manifest that could not be fetched or parsed.
type ManifestError struct {
	URL    string
	Status int
	Err    error
}

func (e *ManifestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("hls: manifest %s returned %d", e.URL, e.Status)
	}
	return fmt.Sprintf("hls: manifest %s: %v", e.URL, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// Level is one playable rendition.
type Level struct {
	Bandwidth  uint32
	Resolution string
	Codecs     string
	URI        string
}

// Manifest is the parsed entry playlist of a stream.
type Manifest struct {
	URL    string
	Master bool
	// Levels is sorted by descending bandwidth.
	Levels []Level
	// Media playlist details, zero for master playlists.
	TargetDuration float64
	Segments       uint
	Live           bool
}

// Best returns the highest bandwidth level.
func (m *Manifest) Best() (Level, bool) {
	if m == nil || len(m.Levels) == 0 {
		return Level{}, false
	}
	return m.Levels[0], true
}

// FetchOptions tunes FetchManifest.
type FetchOptions struct {
	Attempts uint
	Delay    time.Duration
}

// FetchManifest downloads and parses the playlist at manifestURL, retrying
// network failures and 5xx answers.
func FetchManifest(ctx context.Context, httpc *http.Client, manifestURL string, opts FetchOptions) (*Manifest, error) {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	if opts.Attempts == 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = defaultRetryDelay
	}

	var body []byte
	err := retry.Do(
		func() error {
			b, err := fetchOnce(ctx, httpc, manifestURL)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(opts.Attempts),
		retry.Delay(opts.Delay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return ParseManifest(manifestURL, body)
}

func fetchOnce(ctx context.Context, httpc *http.Client, manifestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(&ManifestError{URL: manifestURL, Err: err})
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, &ManifestError{URL: manifestURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		merr := &ManifestError{URL: manifestURL, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, merr
		}
		return nil, retry.Unrecoverable(merr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, &ManifestError{URL: manifestURL, Err: fmt.Errorf("read manifest: %w", err)}
	}
	return body, nil
}

// ParseManifest parses a playlist fetched from manifestURL. Relative variant
// URIs are resolved against it.
func ParseManifest(manifestURL string, body []byte) (*Manifest, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("#EXTM3U")) {
		return nil, &ManifestError{URL: manifestURL, Err: ErrNotPlaylist}
	}
	p, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), true)
	if err != nil {
		return nil, &ManifestError{URL: manifestURL, Err: fmt.Errorf("decode playlist: %w", err)}
	}

	m := &Manifest{URL: manifestURL}
	switch listType {
	case m3u8.MASTER:
		master, ok := p.(*m3u8.MasterPlaylist)
		if !ok {
			return nil, &ManifestError{URL: manifestURL, Err: ErrNotPlaylist}
		}
		m.Master = true
		for _, v := range master.Variants {
			if v == nil || v.URI == "" {
				continue
			}
			m.Levels = append(m.Levels, Level{
				Bandwidth:  v.Bandwidth,
				Resolution: v.Resolution,
				Codecs:     v.Codecs,
				URI:        resolvePlaylistURL(manifestURL, v.URI),
			})
		}
		if len(m.Levels) == 0 {
			return nil, &ManifestError{URL: manifestURL, Err: errors.New("no variants found in master playlist")}
		}
		sort.SliceStable(m.Levels, func(i, j int) bool { return m.Levels[i].Bandwidth > m.Levels[j].Bandwidth })
	case m3u8.MEDIA:
		media, ok := p.(*m3u8.MediaPlaylist)
		if !ok {
			return nil, &ManifestError{URL: manifestURL, Err: ErrNotPlaylist}
		}
		m.TargetDuration = media.TargetDuration
		m.Segments = media.Count()
		m.Live = !media.Closed
		m.Levels = []Level{{URI: manifestURL}}
	default:
		return nil, &ManifestError{URL: manifestURL, Err: ErrNotPlaylist}
	}
	return m, nil
}

// resolvePlaylistURL resolves a variant URI against the playlist URL. Query
// parameters of the playlist URL carry over to relative variants, since CDNs
// put access tokens there.
func resolvePlaylistURL(baseURL, variantURI string) string {
	if strings.HasPrefix(variantURI, "http://") || strings.HasPrefix(variantURI, "https://") {
		return variantURI
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return variantURI
	}
	ref, err := url.Parse(variantURI)
	if err != nil {
		return variantURI
	}
	resolved := base.ResolveReference(ref)
	if ref.RawQuery == "" && base.RawQuery != "" {
		resolved.RawQuery = base.RawQuery
	}
	return resolved.String()
}
