package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dokianime/models"
)

// maxBodyBytes bounds how much of a gateway response is read.
const maxBodyBytes = 32 << 20

// ErrInvalidEpisode is returned when an episode reference cannot be encoded
// as "animeId,episodeId".
var ErrInvalidEpisode = errors.New("invalid episode reference")

// TransportError reports that the gateway could not be reached or did not
// answer with a usable document.
type TransportError struct {
	Op string
	// Status is the HTTP status when the gateway answered, zero otherwise.
	Status int
	// Message is the gateway's error text when it answered with an error document.
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	switch {
	case e.Message != "":
		b.WriteString(": " + e.Message)
	case e.Err != nil:
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Rejected reports whether the gateway answered with a JSON error document.
func (e *TransportError) Rejected() bool { return e.Status >= 400 && e.Message != "" }

// ContentError is a successful exchange whose payload says the content is
// unavailable.
type ContentError struct {
	Op      string
	Message string
}

func (e *ContentError) Error() string {
	if e.Message == "" {
		return e.Op + ": content unavailable"
	}
	return e.Op + ": " + e.Message
}

// Client talks to the gateway's /api endpoints.
type Client struct {
	base  *url.URL
	httpc *http.Client
}

// New returns a client for the gateway at baseURL.
func New(baseURL string, httpc *http.Client) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("gateway url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway url %q must be absolute", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	if httpc == nil {
		httpc = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{base: u, httpc: httpc}, nil
}

// BaseURL returns the gateway root the client was built with.
func (c *Client) BaseURL() string { return c.base.String() }

// Recent lists recently released episodes. An error document or a non-list
// payload is a *ContentError; the list may be empty.
func (c *Client) Recent(ctx context.Context) ([]models.RecentEntry, error) {
	var entries []models.RecentEntry
	if err := c.getList(ctx, "recent", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Search runs a title search.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	var results []models.SearchResult
	q := url.Values{"query": []string{query}}
	if err := c.getList(ctx, "search", q, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Details fetches one catalog entry with its episodes.
func (c *Client) Details(ctx context.Context, id string) (models.AnimeDetails, error) {
	var details models.AnimeDetails
	raw, err := c.get(ctx, "details", nil, "api", "details", id)
	if err != nil {
		return details, err
	}
	if err := json.Unmarshal(raw, &details); err != nil {
		return details, &TransportError{Op: "details", Err: fmt.Errorf("decode details: %w", err)}
	}
	if details.Error != "" {
		return details, &ContentError{Op: "details", Message: details.Error}
	}
	return details, nil
}

// ResolveStream asks the gateway for an episode's stream. A descriptor
// without a source is returned as is; callers branch on HasSource.
func (c *Client) ResolveStream(ctx context.Context, animeID, episodeID string) (models.StreamDescriptor, error) {
	var desc models.StreamDescriptor
	if animeID == "" || episodeID == "" || strings.Contains(animeID, ",") || strings.Contains(episodeID, ",") {
		return desc, fmt.Errorf("%w: %q, %q", ErrInvalidEpisode, animeID, episodeID)
	}
	raw, err := c.get(ctx, "stream", nil, "api", "stream", animeID, episodeID)
	if err != nil {
		return desc, err
	}
	if err := json.Unmarshal(raw, &desc); err != nil {
		return desc, &TransportError{Op: "stream", Err: fmt.Errorf("decode stream descriptor: %w", err)}
	}
	return desc, nil
}

func (c *Client) getList(ctx context.Context, op string, q url.Values, v any) error {
	raw, err := c.get(ctx, op, q, "api", op)
	if err != nil {
		return err
	}
	switch firstByte(raw) {
	case '[':
		if err := json.Unmarshal(raw, v); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("decode %s: %w", op, err)}
		}
		return nil
	case '{':
		var body models.ErrorResponse
		_ = json.Unmarshal(raw, &body)
		return &ContentError{Op: op, Message: body.Error}
	default:
		return &ContentError{Op: op, Message: "unexpected payload"}
	}
}

// get performs the request and returns the body of a 2xx JSON response.
// Path segments are escaped individually.
func (c *Client) get(ctx context.Context, op string, q url.Values, segments ...string) (json.RawMessage, error) {
	u := *c.base
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	u.Path = c.base.Path + "/" + strings.Join(segments, "/")
	u.RawPath = c.base.EscapedPath() + "/" + strings.Join(escaped, "/")
	if q != nil {
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody models.ErrorResponse
		_ = json.Unmarshal(body, &errBody)
		return nil, &TransportError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: errBody.Error,
			Err:     fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: errors.New("response is not valid JSON")}
	}
	return body, nil
}

func firstByte(raw []byte) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}
