package audio

import (
	"io"
	"sync"
	"time"
)

// MockDevice implements Device without a sound card. Its players consume
// the PCM stream at the clip's real byte rate (scaled by Speed) so timing
// behavior matches production closely enough for tests.
type MockDevice struct {
	// Speed scales simulated playback; 2.0 plays twice as fast. Set
	// before Start.
	Speed float64
	// StartErr, when set, is returned by Start to simulate an
	// unavailable device.
	StartErr error

	mu      sync.Mutex
	players []*MockClipPlayer
}

// NewMockDevice creates a mock device playing at real-time speed.
func NewMockDevice() *MockDevice {
	return &MockDevice{Speed: 1.0}
}

// Start creates a paused mock player consuming r.
func (d *MockDevice) Start(format Format, r io.Reader) (ClipPlayer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.StartErr != nil {
		return nil, d.StartErr
	}
	speed := d.Speed
	if speed <= 0 {
		speed = 1.0
	}
	p := newMockClipPlayer(format, r, speed)
	d.players = append(d.players, p)
	return p, nil
}

// Players returns every player the device has created, in order.
func (d *MockDevice) Players() []*MockClipPlayer {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*MockClipPlayer, len(d.players))
	copy(out, d.players)
	return out
}

// MockClipPlayer simulates one clip on the mock device.
type MockClipPlayer struct {
	mu      sync.Mutex
	format  Format
	reader  io.Reader
	speed   float64
	playing bool
	eof     bool
	closed  bool
	done    chan struct{}
	once    sync.Once
}

const mockTick = 2 * time.Millisecond

func newMockClipPlayer(format Format, r io.Reader, speed float64) *MockClipPlayer {
	p := &MockClipPlayer{
		format: format,
		reader: r,
		speed:  speed,
		done:   make(chan struct{}),
	}
	go p.consume()
	return p
}

// Play starts or resumes consuming the stream.
func (p *MockClipPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed && !p.eof {
		p.playing = true
	}
}

// Pause stops consuming without touching the position.
func (p *MockClipPlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

// IsPlaying reports whether the player is actively consuming.
func (p *MockClipPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && !p.eof
}

// Close releases the player's goroutine.
func (p *MockClipPlayer) Close() error {
	p.once.Do(func() {
		p.mu.Lock()
		p.playing = false
		p.closed = true
		p.mu.Unlock()
		close(p.done)
	})
	return nil
}

// consume reads PCM bytes at the clip's byte rate while playing.
func (p *MockClipPlayer) consume() {
	ticker := time.NewTicker(mockTick)
	defer ticker.Stop()

	chunk := int(float64(p.format.ByteRate()) * p.speed * mockTick.Seconds())
	if chunk < p.format.BytesPerFrame() {
		chunk = p.format.BytesPerFrame()
	}
	buf := make([]byte, chunk)

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.mu.Lock()
			if !p.playing || p.eof {
				p.mu.Unlock()
				continue
			}
			_, err := p.reader.Read(buf)
			if err == io.EOF {
				p.eof = true
				p.playing = false
			}
			p.mu.Unlock()
		}
	}
}
