package audio

import (
	"bytes"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Device abstracts the audio backend. Start hands the device a PCM stream
// and returns a paused player for it; the Controller drives everything
// else. The oto implementation is the only one used outside of tests.
type Device interface {
	Start(format Format, r io.Reader) (ClipPlayer, error)
}

// ClipPlayer controls one loaded clip on the device.
type ClipPlayer interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// trackingReader wraps the clip's PCM bytes and tracks the read position
// atomically, so the Controller can report it without touching the
// device's reader goroutine.
type trackingReader struct {
	mu       sync.Mutex
	reader   *bytes.Reader
	size     int64
	position int64 // atomic
}

func newTrackingReader(data []byte) *trackingReader {
	return &trackingReader{
		reader: bytes.NewReader(data),
		size:   int64(len(data)),
	}
}

func (tr *trackingReader) Read(p []byte) (int, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	n, err := tr.reader.Read(p)
	if n > 0 {
		atomic.AddInt64(&tr.position, int64(n))
	}
	return n, err
}

func (tr *trackingReader) Seek(offset int64, whence int) (int64, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	pos, err := tr.reader.Seek(offset, whence)
	if err == nil {
		atomic.StoreInt64(&tr.position, pos)
	}
	return pos, err
}

func (tr *trackingReader) Position() int64 {
	return atomic.LoadInt64(&tr.position)
}

func (tr *trackingReader) Size() int64 {
	return tr.size
}

// otoDevice drives the real sound card. The underlying oto context is
// created once, on the first clip, with that clip's sample layout; oto
// does not support reopening with a different one.
type otoDevice struct {
	mu     sync.Mutex
	ctx    *oto.Context
	format Format
}

// NewDevice returns the oto-backed audio device.
func NewDevice() Device {
	return &otoDevice{}
}

func (d *otoDevice) Start(format Format, r io.Reader) (ClipPlayer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil {
		options := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		}
		switch runtime.GOOS {
		case "darwin":
			options.BufferSize = 100 * time.Millisecond
		default:
			options.BufferSize = 50 * time.Millisecond
		}

		ctx, ready, err := oto.NewContext(options)
		if err != nil {
			return nil, fmt.Errorf("unable to open audio device: %w", err)
		}
		<-ready
		d.ctx = ctx
		d.format = format
	} else if d.format != format {
		return nil, fmt.Errorf("clip format %dHz/%dch does not match device %dHz/%dch",
			format.SampleRate, format.Channels, d.format.SampleRate, d.format.Channels)
	}

	return d.ctx.NewPlayer(r), nil
}
