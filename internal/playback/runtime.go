package playback

import (
	"context"

	"dokianime/models"
)

// StreamSource resolves an episode to a stream descriptor. A descriptor
// without a source is a content outcome; errors are transport failures.
type StreamSource interface {
	ResolveStream(ctx context.Context, animeID, episodeID string) (models.StreamDescriptor, error)
}

// Runtime is the playback environment: it reports whether the software
// adaptive-streaming engine can run and builds engines and media elements.
type Runtime interface {
	EngineSupported() bool
	NewEngine() Engine
	NewMediaElement() MediaElement
}

// Engine is a software adaptive-streaming engine. Callbacks may fire from
// any goroutine. Destroy must not wait for pending callbacks, and calls
// after Destroy must be no-ops.
type Engine interface {
	LoadSource(url string)
	AttachMedia(el MediaElement)
	OnManifestParsed(fn func())
	OnError(fn func(err error))
	Destroy()
}

// MediaElement is the video sink.
type MediaElement interface {
	SetSource(url string)
	CanPlayType(mime string) bool
	OnLoadedMetadata(fn func())
	Play() error
	Release()
}

// Surface renders pipeline snapshots. Render is called with the pipeline
// lock held and must not call back into the pipeline.
type Surface interface {
	Render(Snapshot)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(Snapshot)

func (f SurfaceFunc) Render(s Snapshot) { f(s) }
