package hls

import (
	"context"

	"dokianime/models"
)

type streamOf string

func (s streamOf) ResolveStream(context.Context, string, string) (models.StreamDescriptor, error) {
	return models.StreamDescriptor{StreamURL: string(s)}, nil
}
