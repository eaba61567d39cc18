package hls

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dokianime/internal/playback"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const masterPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360,CODECS="avc1.4d401e,mp4a.40.2"
360p/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720,CODECS="avc1.4d401f,mp4a.40.2"
720p/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080
https://other.cdn/1080p/index.m3u8
`

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXTINF:10.0,
seg0.ts
#EXTINF:10.0,
seg1.ts
#EXT-X-ENDLIST
`

func quietOptions() Options {
	return Options{
		Attempts:   3,
		RetryDelay: time.Millisecond,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestParseManifestMaster(t *testing.T) {
	m, err := ParseManifest("https://cdn.example/show/master.m3u8?token=abc", []byte(masterPlaylist))
	require.NoError(t, err)

	assert.True(t, m.Master)
	require.Len(t, m.Levels, 3)
	assert.Equal(t, uint32(5000000), m.Levels[0].Bandwidth)
	assert.Equal(t, "https://other.cdn/1080p/index.m3u8", m.Levels[0].URI)
	assert.Equal(t, "1280x720", m.Levels[1].Resolution)
	assert.Equal(t, "https://cdn.example/show/720p/index.m3u8?token=abc", m.Levels[1].URI)

	best, ok := m.Best()
	require.True(t, ok)
	assert.Equal(t, m.Levels[0], best)
}

func TestParseManifestMedia(t *testing.T) {
	m, err := ParseManifest("https://cdn.example/ep/index.m3u8", []byte(mediaPlaylist))
	require.NoError(t, err)

	assert.False(t, m.Master)
	assert.False(t, m.Live)
	assert.Equal(t, uint(2), m.Segments)
	assert.Equal(t, 10.0, m.TargetDuration)
	require.Len(t, m.Levels, 1)
	assert.Equal(t, "https://cdn.example/ep/index.m3u8", m.Levels[0].URI)
}

func TestParseManifestRejectsNonPlaylist(t *testing.T) {
	_, err := ParseManifest("https://cdn.example/x", []byte("<html>not found</html>"))
	require.ErrorIs(t, err, ErrNotPlaylist)
}

func TestFetchManifestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(mediaPlaylist))
	}))
	defer srv.Close()

	m, err := FetchManifest(context.Background(), srv.Client(), srv.URL+"/index.m3u8", FetchOptions{Attempts: 3, Delay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, uint(2), m.Segments)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchManifestDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := FetchManifest(context.Background(), srv.Client(), srv.URL+"/missing.m3u8", FetchOptions{Attempts: 3, Delay: time.Millisecond})
	var merr *ManifestError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, http.StatusNotFound, merr.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEngineFiresManifestParsedAndFeedsBestLevel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(masterPlaylist))
	}))
	defer srv.Close()

	opts := quietOptions()
	opts.HTTPClient = srv.Client()
	eng := NewEngine(opts)
	el := playback.NewHeadlessMedia(false)

	parsed := make(chan struct{})
	eng.OnManifestParsed(func() { close(parsed) })
	eng.OnError(func(err error) { t.Errorf("unexpected error: %v", err) })
	eng.LoadSource(srv.URL + "/master.m3u8")
	eng.AttachMedia(el)

	select {
	case <-parsed:
	case <-time.After(5 * time.Second):
		t.Fatal("manifest parsed never fired")
	}
	assert.Equal(t, "https://other.cdn/1080p/index.m3u8", el.Source())
	assert.Len(t, eng.Levels(), 3)
}

func TestEngineReportsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	opts := quietOptions()
	opts.HTTPClient = srv.Client()
	eng := NewEngine(opts)

	errs := make(chan error, 1)
	eng.OnError(func(err error) { errs <- err })
	eng.LoadSource(srv.URL + "/gone.m3u8")
	eng.AttachMedia(playback.NewHeadlessMedia(false))

	select {
	case err := <-errs:
		var merr *ManifestError
		assert.True(t, errors.As(err, &merr))
	case <-time.After(5 * time.Second):
		t.Fatal("error never reported")
	}
}

func TestEngineDestroyDropsPendingLoad(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte(mediaPlaylist))
	}))
	defer srv.Close()
	defer close(release)

	opts := quietOptions()
	opts.HTTPClient = srv.Client()
	eng := NewEngine(opts)

	var fired atomic.Bool
	eng.OnManifestParsed(func() { fired.Store(true) })
	eng.OnError(func(error) { fired.Store(true) })
	eng.LoadSource(srv.URL + "/index.m3u8")
	eng.AttachMedia(playback.NewHeadlessMedia(false))
	eng.Destroy()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.Nil(t, eng.Levels())
}

func TestRuntimeDrivesPipeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(mediaPlaylist))
	}))
	defer srv.Close()

	opts := quietOptions()
	opts.HTTPClient = srv.Client()
	rt := &Runtime{Options: opts}

	started := make(chan playback.Snapshot, 4)
	surface := playback.SurfaceFunc(func(s playback.Snapshot) {
		if s.Started {
			started <- s
		}
	})
	p := playback.New(streamOf(srv.URL+"/index.m3u8"), rt, playback.Options{Logger: opts.Logger, Surface: surface})
	defer p.Close()

	snap, err := p.Load(context.Background(), "frieren", "ep-1")
	require.NoError(t, err)
	assert.Equal(t, playback.Playing, snap.State)
	assert.Equal(t, playback.StrategyEngine, snap.Strategy)

	select {
	case s := <-started:
		assert.Equal(t, "ep-1", s.EpisodeID)
	case <-time.After(5 * time.Second):
		t.Fatal("playback never started")
	}
}
