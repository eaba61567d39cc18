package playback

import (
	"errors"
	"sync"
)

// ErrReleased is returned by Play on a released element.
var ErrReleased = errors.New("playback: media element released")

// HeadlessMedia is a MediaElement without a display. It records what was
// asked of it and fires loaded-metadata as soon as a source is set.
type HeadlessMedia struct {
	mu         sync.Mutex
	nativeHLS  bool
	src        string
	playing    bool
	released   bool
	onMetadata func()
}

var _ MediaElement = (*HeadlessMedia)(nil)

// NewHeadlessMedia returns an element; nativeHLS controls CanPlayType for
// HLS manifests.
func NewHeadlessMedia(nativeHLS bool) *HeadlessMedia {
	return &HeadlessMedia{nativeHLS: nativeHLS}
}

func (m *HeadlessMedia) SetSource(url string) {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return
	}
	m.src = url
	fn := m.onMetadata
	m.mu.Unlock()

	if fn != nil && url != "" {
		fn()
	}
}

func (m *HeadlessMedia) CanPlayType(mime string) bool {
	return m.nativeHLS && mime == HLSMimeType
}

func (m *HeadlessMedia) OnLoadedMetadata(fn func()) {
	m.mu.Lock()
	m.onMetadata = fn
	m.mu.Unlock()
}

func (m *HeadlessMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return ErrReleased
	}
	m.playing = true
	return nil
}

func (m *HeadlessMedia) Release() {
	m.mu.Lock()
	m.released = true
	m.playing = false
	m.onMetadata = nil
	m.mu.Unlock()
}

func (m *HeadlessMedia) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src
}

func (m *HeadlessMedia) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *HeadlessMedia) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}
