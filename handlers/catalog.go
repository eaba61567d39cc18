package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"dokianime/services/resolver"

	"github.com/gorilla/mux"
)

// Client-facing messages. Resolver diagnostics never reach the client; they
// are logged instead.
const (
	MsgScraperFailed   = "Scraper script failed. Check server logs."
	MsgMalformedOutput = "Failed to parse JSON from scraper output."
	MsgQueryRequired   = "Search query is required."
	MsgInvalidEpisode  = "Invalid episodeId format. Expected 'animeId,episodeId'."
)

var _ resolver.ContentResolver = (*resolver.Service)(nil)

// CatalogHandler exposes the resolver's four operations over HTTP. It keeps no
// state between requests: every request is one resolver invocation.
type CatalogHandler struct {
	Resolver resolver.ContentResolver
	logger   *slog.Logger
}

func NewCatalogHandler(r resolver.ContentResolver, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogHandler{Resolver: r, logger: logger.With("component", "catalog")}
}

// Recent handles GET /api/recent.
func (h *CatalogHandler) Recent(w http.ResponseWriter, r *http.Request) {
	payload, err := h.Resolver.ListRecent(r.Context())
	h.respond(w, r, payload, err)
}

// Search handles GET /api/search?query=. A blank query is rejected before the
// resolver is touched.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if strings.TrimSpace(query) == "" {
		writeJSONError(w, MsgQueryRequired, http.StatusBadRequest)
		return
	}
	payload, err := h.Resolver.Search(r.Context(), query)
	h.respond(w, r, payload, err)
}

// Details handles GET /api/details/{id}.
func (h *CatalogHandler) Details(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if strings.TrimSpace(id) == "" {
		writeJSONError(w, "Catalog id is required.", http.StatusBadRequest)
		return
	}
	payload, err := h.Resolver.GetDetails(r.Context(), id)
	h.respond(w, r, payload, err)
}

// Stream handles GET /api/stream/{episodeId} where episodeId is the compound
// "animeId,episodeId".
func (h *CatalogHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ref, err := resolver.ParseEpisodeRef(mux.Vars(r)["episodeId"])
	if err != nil {
		h.logger.Debug("rejected episode id", "episode_id", mux.Vars(r)["episodeId"], "error", err)
		writeJSONError(w, MsgInvalidEpisode, http.StatusBadRequest)
		return
	}
	payload, err := h.Resolver.ResolveStream(r.Context(), ref)
	h.respond(w, r, payload, err)
}

// StreamParts handles GET /api/stream/{animeId}/{episodeId}.
func (h *CatalogHandler) StreamParts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ref := resolver.EpisodeRef{AnimeID: vars["animeId"], EpisodeID: vars["episodeId"]}
	if err := ref.Validate(); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload, err := h.Resolver.ResolveStream(r.Context(), ref)
	h.respond(w, r, payload, err)
}

func (h *CatalogHandler) respond(w http.ResponseWriter, r *http.Request, payload json.RawMessage, err error) {
	if err != nil {
		status, message := classifyResolverError(err)
		h.logger.Error("resolver request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"request_id", w.Header().Get(RequestIDHeader),
			"error", err,
		)
		writeJSONError(w, message, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// classifyResolverError maps the resolver error taxonomy onto HTTP. Only
// validation messages describe the request; everything else is generic.
func classifyResolverError(err error) (int, string) {
	var validation *resolver.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.Is(err, resolver.ErrResolverOutput):
		return http.StatusInternalServerError, MsgMalformedOutput
	default:
		return http.StatusInternalServerError, MsgScraperFailed
	}
}
