package playback

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Options configures a Pipeline.
type Options struct {
	Surface Surface
	Logger  *slog.Logger
}

// session is the media element and optional engine bound to one load.
type session struct {
	token  uint64
	engine Engine
	media  MediaElement
}

func (s *session) release() {
	if s.engine != nil {
		s.engine.Destroy()
	}
	if s.media != nil {
		s.media.Release()
	}
}

// Pipeline turns an episode selection into playback. Every Load takes a new
// generation token; results carrying an older token are dropped, so the last
// selection always wins. At most one session is alive at a time.
type Pipeline struct {
	source  StreamSource
	runtime Runtime
	surface Surface
	logger  *slog.Logger

	mu      sync.Mutex
	gen     uint64
	session *session
	current Snapshot
}

func New(source StreamSource, runtime Runtime, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:  source,
		runtime: runtime,
		surface: opts.Surface,
		logger:  logger.With("component", "playback"),
		current: Snapshot{State: Idle},
	}
}

// Snapshot returns the current state of the player.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Load resolves and attaches an episode. It returns ErrSuperseded when a
// newer Load or Close happened while the stream was being resolved; the
// surface is left to the newer request in that case.
func (p *Pipeline) Load(ctx context.Context, animeID, episodeID string) (Snapshot, error) {
	p.mu.Lock()
	p.gen++
	token := p.gen
	p.releaseLocked()
	p.setLocked(Snapshot{State: Loading, AnimeID: animeID, EpisodeID: episodeID, Message: MsgLoading})
	p.mu.Unlock()

	desc, err := p.source.ResolveStream(ctx, animeID, episodeID)

	p.mu.Lock()
	if token != p.gen {
		p.mu.Unlock()
		p.logger.Debug("discarding superseded stream result", "anime_id", animeID, "episode_id", episodeID)
		return Snapshot{}, ErrSuperseded
	}

	snap := Snapshot{AnimeID: animeID, EpisodeID: episodeID}
	if err != nil {
		p.logger.Warn("stream request failed", "anime_id", animeID, "episode_id", episodeID, "error", err)
		snap.State = LoadError
		snap.Message = MsgLoadError
		snap.Err = err
		p.setLocked(snap)
		p.mu.Unlock()
		return snap, nil
	}
	if !desc.HasSource() {
		snap.State = NoSource
		snap.Message = strings.TrimSpace(desc.Error)
		if snap.Message == "" {
			snap.Message = MsgNoSource
		}
		p.setLocked(snap)
		p.mu.Unlock()
		return snap, nil
	}

	url := desc.StreamURL
	sess := &session{token: token}
	var attach func()
	if p.runtime.EngineSupported() {
		el := p.runtime.NewMediaElement()
		eng := p.runtime.NewEngine()
		sess.engine, sess.media = eng, el
		eng.OnManifestParsed(func() { p.start(token) })
		eng.OnError(func(err error) { p.fail(token, err) })
		snap.Strategy = StrategyEngine
		attach = func() {
			eng.LoadSource(url)
			eng.AttachMedia(el)
		}
	} else {
		el := p.runtime.NewMediaElement()
		if !el.CanPlayType(HLSMimeType) {
			el.Release()
			snap.State = Unsupported
			snap.Message = MsgUnsupported
			snap.StreamURL = url
			p.setLocked(snap)
			p.mu.Unlock()
			return snap, nil
		}
		sess.media = el
		el.OnLoadedMetadata(func() { p.start(token) })
		snap.Strategy = StrategyNative
		attach = func() { el.SetSource(url) }
	}

	snap.State = Playing
	snap.StreamURL = url
	p.session = sess
	p.setLocked(snap)
	p.mu.Unlock()

	// Engine and element callbacks take the lock themselves.
	attach()

	p.mu.Lock()
	defer p.mu.Unlock()
	if token != p.gen {
		return Snapshot{}, ErrSuperseded
	}
	return p.current, nil
}

// Close tears down the current session and returns to Idle. Pending loads
// are discarded.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.releaseLocked()
	p.setLocked(Snapshot{State: Idle})
}

// start asks the media element to play once it is ready.
func (p *Pipeline) start(token uint64) {
	p.mu.Lock()
	if token != p.gen || p.session == nil || p.session.token != token {
		p.mu.Unlock()
		return
	}
	el := p.session.media
	p.mu.Unlock()

	err := el.Play()

	p.mu.Lock()
	defer p.mu.Unlock()
	if token != p.gen {
		return
	}
	if err != nil {
		// Autoplay refusals leave the player attached.
		p.logger.Warn("media element refused to play", "error", err)
		return
	}
	snap := p.current
	snap.Started = true
	p.setLocked(snap)
}

// fail handles a fatal engine error for the session identified by token.
func (p *Pipeline) fail(token uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if token != p.gen || p.current.State != Playing {
		return
	}
	p.logger.Warn("playback engine failed",
		"anime_id", p.current.AnimeID,
		"episode_id", p.current.EpisodeID,
		"stream_url", p.current.StreamURL,
		"error", err,
	)
	p.releaseLocked()
	snap := p.current
	snap.State = LoadError
	snap.Message = MsgLoadError
	snap.Started = false
	snap.Err = err
	p.setLocked(snap)
}

func (p *Pipeline) releaseLocked() {
	if p.session == nil {
		return
	}
	p.session.release()
	p.session = nil
}

func (p *Pipeline) setLocked(s Snapshot) {
	p.current = s
	if p.surface != nil {
		p.surface.Render(s)
	}
}
