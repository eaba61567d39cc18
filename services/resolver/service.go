package resolver

import (
	"context"
	"encoding/json"
)

//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks dokianime/services/resolver ContentResolver

// ContentResolver is everything the gateway needs from the catalog source.
// Payloads are returned exactly as the source produced them.
type ContentResolver interface {
	ListRecent(ctx context.Context) (json.RawMessage, error)
	Search(ctx context.Context, query string) (json.RawMessage, error)
	GetDetails(ctx context.Context, id string) (json.RawMessage, error)
	ResolveStream(ctx context.Context, ref EpisodeRef) (json.RawMessage, error)
}

// Service maps ContentResolver calls onto resolver commands.
type Service struct {
	invoker Invoker
}

var _ ContentResolver = (*Service)(nil)

func NewService(invoker Invoker) *Service {
	return &Service{invoker: invoker}
}

func (s *Service) ListRecent(ctx context.Context) (json.RawMessage, error) {
	return s.invoker.Invoke(ctx, CommandRecent)
}

func (s *Service) Search(ctx context.Context, query string) (json.RawMessage, error) {
	return s.invoker.Invoke(ctx, CommandSearch, query)
}

func (s *Service) GetDetails(ctx context.Context, id string) (json.RawMessage, error) {
	return s.invoker.Invoke(ctx, CommandDetails, id)
}

func (s *Service) ResolveStream(ctx context.Context, ref EpisodeRef) (json.RawMessage, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return s.invoker.Invoke(ctx, CommandStream, ref.Compound())
}
