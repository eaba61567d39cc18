package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720
720p.m3u8
`

func newFakeGateway(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/recent", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"frieren","title":"Frieren","image":"i","episode_title":"Episode 28"}]`))
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "nothing" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"id":"frieren","title":"Frieren","image":"i"}]`))
	})
	mux.HandleFunc("/api/details/frieren", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"Frieren","image":"i","description":"","episodes":[{"id":"ep-1","number":1}]}`))
	})
	mux.HandleFunc("/api/stream/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "ep-404") {
			_, _ = w.Write([]byte(`{"error":"No sources list found on the watch page."}`))
			return
		}
		_, _ = w.Write([]byte(`{"streamUrl":"http://` + r.Host + `/cdn/master.m3u8"}`))
	})
	mux.HandleFunc("/cdn/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testManifest))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRecentCommand(t *testing.T) {
	srv := newFakeGateway(t)

	out, err := runCLI(t, "recent", "--gateway", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Frieren")
	assert.Contains(t, out, "Episode 28")
}

func TestSearchCommandEmpty(t *testing.T) {
	srv := newFakeGateway(t)

	out, err := runCLI(t, "search", "--gateway", srv.URL, "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found for that query.")
}

func TestDetailsCommand(t *testing.T) {
	srv := newFakeGateway(t)

	out, err := runCLI(t, "details", "--gateway", srv.URL, "frieren")
	require.NoError(t, err)
	assert.Contains(t, out, "No description available.")
	assert.Contains(t, out, "Episode 1")
}

func TestPlayCommandStartsEngine(t *testing.T) {
	srv := newFakeGateway(t)

	out, err := runCLI(t, "play", "--gateway", srv.URL, "frieren,ep-1")
	require.NoError(t, err)
	assert.Contains(t, out, "playing")
	assert.Contains(t, out, "engine")
	assert.Contains(t, out, "1280x720")
}

func TestPlayCommandNoSource(t *testing.T) {
	srv := newFakeGateway(t)

	out, err := runCLI(t, "play", "--gateway", srv.URL, "frieren", "ep-404")
	require.Error(t, err)
	assert.Equal(t, "No sources list found on the watch page.", err.Error())
	assert.Contains(t, out, "no-source")
}

func TestPlayCommandUnsupported(t *testing.T) {
	srv := newFakeGateway(t)

	_, err := runCLI(t, "play", "--gateway", srv.URL, "--no-engine", "frieren,ep-1")
	require.Error(t, err)
	assert.Equal(t, "Your browser cannot play this stream.", err.Error())
}

func TestEpisodeArgs(t *testing.T) {
	a, e, err := episodeArgs([]string{"frieren,ep-1"})
	require.NoError(t, err)
	assert.Equal(t, "frieren", a)
	assert.Equal(t, "ep-1", e)

	_, _, err = episodeArgs([]string{"a,b,c"})
	require.Error(t, err)
}
