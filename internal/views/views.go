package views

import (
	"context"
	"errors"
	"strings"

	"dokianime/internal/apiclient"
	"dokianime/models"
)

// Status is the lifecycle of a view.
type Status int

const (
	Idle Status = iota
	Loading
	Populated
	// Empty is a successful search with no hits.
	Empty
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Populated:
		return "populated"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// User-facing messages.
const (
	MsgRecentFailed  = "Failed to load recent episodes. The source might be down."
	MsgRecentError   = "An error occurred while loading data."
	MsgSearchFailed  = "Search failed. Please try again."
	MsgNoResults     = "No results found for that query."
	MsgSearchError   = "An error occurred during the search."
	MsgDetailsFailed = "Failed to load details."
	MsgNoDescription = "No description available."
	MsgNoEpisodes    = "No episodes found."
)

// Catalog is the read side of the gateway used by the views.
type Catalog interface {
	Recent(ctx context.Context) ([]models.RecentEntry, error)
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	Details(ctx context.Context, id string) (models.AnimeDetails, error)
}

var _ Catalog = (*apiclient.Client)(nil)

// Observer is told about every status a view passes through.
type Observer func(Status)

func (o Observer) notify(s Status) {
	if o != nil {
		o(s)
	}
}

// RecentView is the catalog grid.
type RecentView struct {
	Status  Status
	Entries []models.RecentEntry
	Message string
	Err     error
}

// LoadRecent fills the catalog grid. An error document, a non-list or an
// empty list all read as the source being down.
func LoadRecent(ctx context.Context, c Catalog, observe Observer) RecentView {
	observe.notify(Loading)
	entries, err := c.Recent(ctx)

	var view RecentView
	switch {
	case err != nil && isContentFailure(err):
		view = RecentView{Status: Failed, Message: MsgRecentFailed, Err: err}
	case err != nil:
		view = RecentView{Status: Failed, Message: MsgRecentError, Err: err}
	case len(entries) == 0:
		view = RecentView{Status: Failed, Message: MsgRecentFailed}
	default:
		view = RecentView{Status: Populated, Entries: entries}
	}
	observe.notify(view.Status)
	return view
}

// SearchView is the search results list.
type SearchView struct {
	Status  Status
	Query   string
	Results []models.SearchResult
	Message string
	Err     error
}

// Search runs a query. A blank query leaves the view idle without a request.
func Search(ctx context.Context, c Catalog, query string, observe Observer) SearchView {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchView{Status: Idle}
	}

	observe.notify(Loading)
	results, err := c.Search(ctx, query)

	view := SearchView{Query: query}
	switch {
	case err != nil && isContentFailure(err):
		view.Status, view.Message, view.Err = Failed, MsgSearchFailed, err
	case err != nil:
		view.Status, view.Message, view.Err = Failed, MsgSearchError, err
	case len(results) == 0:
		view.Status, view.Message = Empty, MsgNoResults
	default:
		view.Status, view.Results = Populated, results
	}
	observe.notify(view.Status)
	return view
}

// DetailsView is the detail page of one catalog entry.
type DetailsView struct {
	Status      Status
	ID          string
	Title       string
	Image       string
	Description string
	Episodes    []models.Episode
	// EpisodesMessage replaces the episode list when there is none.
	EpisodesMessage string
	Message         string
	Err             error
}

// EpisodeLabel is the button text for an episode.
func EpisodeLabel(ep models.Episode) string {
	return "Episode " + ep.Number.String()
}

// LoadDetails fills the detail page. An error document is shown verbatim.
func LoadDetails(ctx context.Context, c Catalog, id string, observe Observer) DetailsView {
	observe.notify(Loading)
	details, err := c.Details(ctx, id)

	view := DetailsView{ID: id}
	var contentErr *apiclient.ContentError
	var transportErr *apiclient.TransportError
	switch {
	case errors.As(err, &contentErr):
		view.Status, view.Message, view.Err = Failed, contentErr.Message, err
	case errors.As(err, &transportErr) && transportErr.Rejected():
		view.Status, view.Message, view.Err = Failed, transportErr.Message, err
	case err != nil:
		view.Status, view.Message, view.Err = Failed, MsgDetailsFailed, err
	default:
		view.Status = Populated
		view.Title = details.Title
		view.Image = details.Image
		view.Description = strings.TrimSpace(details.Description)
		if view.Description == "" {
			view.Description = MsgNoDescription
		}
		view.Episodes = details.Episodes
		if len(view.Episodes) == 0 {
			view.EpisodesMessage = MsgNoEpisodes
		}
	}
	observe.notify(view.Status)
	return view
}

// isContentFailure reports whether err carries a payload that describes the
// failure, as opposed to the gateway being unreachable or unreadable.
func isContentFailure(err error) bool {
	var contentErr *apiclient.ContentError
	if errors.As(err, &contentErr) {
		return true
	}
	var transportErr *apiclient.TransportError
	return errors.As(err, &transportErr) && transportErr.Rejected()
}
