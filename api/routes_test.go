package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dokianime/handlers"
	"dokianime/services/resolver"
	"dokianime/services/resolver/mocks"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"go.uber.org/mock/gomock"
)

func newTestRouter(t *testing.T) (*mux.Router, *mocks.MockContentResolver) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mock := mocks.NewMockContentResolver(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/index.html", []byte("<html>shell</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, "/style.css", []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := mux.NewRouter()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	Register(r, handlers.NewCatalogHandler(mock, logger), handlers.NewShellHandler(fsys, "index.html"), Options{
		Logger:  logger,
		Metrics: metrics,
	})
	return r, mock
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRoutes_DeepLinksServeShell(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, target := range []string{"/", "/anime/frieren", "/watch/frieren/ep-1", "/api-docs"} {
		rec := serve(r, http.MethodGet, target)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected %d, got %d", target, http.StatusOK, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "shell") {
			t.Fatalf("%s: expected shell, got %q", target, rec.Body.String())
		}
	}

	rec := serve(r, http.MethodGet, "/style.css")
	if rec.Body.String() != "body{}" {
		t.Fatalf("expected static asset, got %q", rec.Body.String())
	}
}

func TestRoutes_UnknownAPIPathFallsThrough(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := serve(r, http.MethodGet, "/api/unknown")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "shell") {
		t.Fatalf("expected shell fallback, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRoutes_SearchWithoutQueryNeverReachesResolver(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := serve(r, http.MethodGet, "/api/search")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, rec.Code)
	}
	if rec.Header().Get(handlers.RequestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header on API response")
	}
}

func TestRoutes_APIEndpoints(t *testing.T) {
	r, mock := newTestRouter(t)
	gomock.InOrder(
		mock.EXPECT().ListRecent(gomock.Any()).Return(json.RawMessage(`[]`), nil),
		mock.EXPECT().Search(gomock.Any(), "frieren").Return(json.RawMessage(`[{"id":"f"}]`), nil),
		mock.EXPECT().GetDetails(gomock.Any(), "frieren").Return(json.RawMessage(`{"title":"Frieren"}`), nil),
		mock.EXPECT().ResolveStream(gomock.Any(), resolver.EpisodeRef{AnimeID: "frieren", EpisodeID: "ep-1"}).Return(json.RawMessage(`{"streamUrl":"u"}`), nil),
		mock.EXPECT().ResolveStream(gomock.Any(), resolver.EpisodeRef{AnimeID: "frieren", EpisodeID: "ep-2"}).Return(json.RawMessage(`{"streamUrl":"v"}`), nil),
	)

	tests := []struct {
		target string
		body   string
	}{
		{"/api/recent", `[]`},
		{"/api/search?query=frieren", `[{"id":"f"}]`},
		{"/api/details/frieren", `{"title":"Frieren"}`},
		{"/api/stream/frieren,ep-1", `{"streamUrl":"u"}`},
		{"/api/stream/frieren/ep-2", `{"streamUrl":"v"}`},
	}
	for _, tt := range tests {
		rec := serve(r, http.MethodGet, tt.target)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected %d, got %d", tt.target, http.StatusOK, rec.Code)
		}
		if rec.Body.String() != tt.body {
			t.Fatalf("%s: unexpected body %q", tt.target, rec.Body.String())
		}
	}
}

func TestRoutes_Preflight(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{
		"/api/recent",
		"/api/search",
		"/api/details/frieren",
		"/api/stream/frieren,ep-1",
		"/api/stream/frieren/ep-1",
	} {
		rec := serve(r, http.MethodOptions, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected %d, got %d", path, http.StatusOK, rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Methods") == "" {
			t.Fatalf("%s: expected CORS methods header", path)
		}
	}
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t)

	if rec := serve(r, http.MethodGet, "/healthz"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(r, http.MethodGet, "/metrics"); rec.Body.String() != "# metrics" {
		t.Fatalf("unexpected metrics response %q", rec.Body.String())
	}
}
