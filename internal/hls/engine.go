package hls

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"dokianime/internal/playback"
)

// Options configures engines built by NewEngine and Runtime.
type Options struct {
	HTTPClient *http.Client
	Attempts   uint
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// Engine is a software adaptive-streaming engine: it fetches and parses the
// manifest, then feeds the best level to the attached media element.
type Engine struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	source    string
	media     playback.MediaElement
	manifest  *Manifest
	fired     bool
	destroyed bool
	onParsed  func()
	onError   func(error)
}

var _ playback.Engine = (*Engine)(nil)

func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		opts:   opts,
		logger: logger.With("component", "hls"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// LoadSource starts fetching the manifest in the background.
func (e *Engine) LoadSource(url string) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.source = url
	ctx := e.ctx
	e.mu.Unlock()

	go e.load(ctx, url)
}

func (e *Engine) load(ctx context.Context, url string) {
	m, err := FetchManifest(ctx, e.opts.HTTPClient, url, FetchOptions{Attempts: e.opts.Attempts, Delay: e.opts.RetryDelay})

	e.mu.Lock()
	if e.destroyed || ctx.Err() != nil || e.source != url {
		e.mu.Unlock()
		return
	}
	if err != nil {
		fn := e.onError
		e.mu.Unlock()
		e.logger.Warn("manifest load failed", "url", url, "error", err)
		if fn != nil {
			fn(err)
		}
		return
	}
	e.manifest = m
	e.logger.Debug("manifest parsed", "url", url, "master", m.Master, "levels", len(m.Levels))
	e.fireParsedLocked()
}

// AttachMedia binds the element the engine feeds.
func (e *Engine) AttachMedia(el playback.MediaElement) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.media = el
	e.fireParsedLocked()
}

// fireParsedLocked fires manifest-parsed once both the manifest and the
// element are present. It releases e.mu.
func (e *Engine) fireParsedLocked() {
	if e.fired || e.manifest == nil || e.media == nil {
		e.mu.Unlock()
		return
	}
	e.fired = true
	el := e.media
	fn := e.onParsed
	level, _ := e.manifest.Best()
	e.mu.Unlock()

	el.SetSource(level.URI)
	if fn != nil {
		fn()
	}
}

func (e *Engine) OnManifestParsed(fn func()) {
	e.mu.Lock()
	e.onParsed = fn
	e.mu.Unlock()
}

func (e *Engine) OnError(fn func(err error)) {
	e.mu.Lock()
	e.onError = fn
	e.mu.Unlock()
}

// Levels returns the parsed renditions, best first.
func (e *Engine) Levels() []Level {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.manifest == nil {
		return nil
	}
	out := make([]Level, len(e.manifest.Levels))
	copy(out, e.manifest.Levels)
	return out
}

// Destroy stops any pending fetch and detaches the element.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.cancel()
	e.media = nil
	e.onParsed = nil
	e.onError = nil
}

// Runtime is a headless playback.Runtime backed by Engine.
type Runtime struct {
	Options
	// NativeHLS makes media elements report native HLS support.
	NativeHLS bool
	// DisableEngine forces the native path.
	DisableEngine bool
}

var _ playback.Runtime = (*Runtime)(nil)

func (r *Runtime) EngineSupported() bool { return !r.DisableEngine }

func (r *Runtime) NewEngine() playback.Engine { return NewEngine(r.Options) }

func (r *Runtime) NewMediaElement() playback.MediaElement {
	return playback.NewHeadlessMedia(r.NativeHLS)
}
