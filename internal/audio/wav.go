package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Playback is fixed to 16-bit little-endian PCM, the one format the output
// device is opened with.
const (
	// BitDepth is the supported sample bit depth.
	BitDepth = 16
	// BytesPerSample is the size of a single sample.
	BytesPerSample = BitDepth / 8
)

// Format describes the PCM layout of a decoded clip.
type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerFrame returns the size of one frame (one sample per channel).
func (f Format) BytesPerFrame() int {
	return BytesPerSample * f.Channels
}

// ByteRate returns the number of PCM bytes consumed per second.
func (f Format) ByteRate() int {
	return f.SampleRate * f.BytesPerFrame()
}

// DurationOf converts a byte offset into elapsed playback time.
func (f Format) DurationOf(n int64) time.Duration {
	rate := f.ByteRate()
	if rate == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// OffsetAt converts elapsed playback time into a frame-aligned byte offset.
func (f Format) OffsetAt(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	off := int64(d) * int64(f.ByteRate()) / int64(time.Second)
	frame := int64(f.BytesPerFrame())
	if frame == 0 {
		return 0
	}
	return off - off%frame
}

// WAV parsing errors.
var (
	ErrNotWAV         = errors.New("not a RIFF/WAVE file")
	ErrUnsupportedWAV = errors.New("unsupported WAV encoding (need 16-bit PCM)")
)

const wavHeaderSize = 12

// DecodeWAV extracts raw PCM samples and their format from a WAV file's
// bytes. Only uncompressed 16-bit PCM is accepted.
func DecodeWAV(data []byte) ([]byte, Format, error) {
	if len(data) < wavHeaderSize ||
		!bytes.Equal(data[0:4], []byte("RIFF")) ||
		!bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, Format{}, ErrNotWAV
	}

	var format Format
	var haveFmt bool
	r := bytes.NewReader(data[wavHeaderSize:])
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, Format{}, fmt.Errorf("missing data chunk: %w", ErrNotWAV)
			}
			return nil, Format{}, err
		}
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch string(hdr[0:4]) {
		case "fmt ":
			if size < 16 {
				return nil, Format{}, ErrUnsupportedWAV
			}
			chunk := make([]byte, size)
			if _, err := io.ReadFull(r, chunk); err != nil {
				return nil, Format{}, fmt.Errorf("truncated fmt chunk: %w", ErrNotWAV)
			}
			audioFormat := binary.LittleEndian.Uint16(chunk[0:2])
			bits := binary.LittleEndian.Uint16(chunk[14:16])
			if audioFormat != 1 || bits != BitDepth {
				return nil, Format{}, ErrUnsupportedWAV
			}
			format.Channels = int(binary.LittleEndian.Uint16(chunk[2:4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(chunk[4:8]))
			if format.Channels < 1 || format.SampleRate < 1 {
				return nil, Format{}, ErrUnsupportedWAV
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, Format{}, fmt.Errorf("data chunk before fmt: %w", ErrNotWAV)
			}
			pcm := make([]byte, size)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return nil, Format{}, fmt.Errorf("truncated data chunk: %w", ErrNotWAV)
			}
			if len(pcm)%format.BytesPerFrame() != 0 {
				pcm = pcm[:len(pcm)-len(pcm)%format.BytesPerFrame()]
			}
			return pcm, format, nil

		default:
			// Chunks are word-aligned; skip padding byte for odd sizes.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, Format{}, fmt.Errorf("truncated chunk %q: %w", hdr[0:4], ErrNotWAV)
			}
		}
	}
}

// DecodeWAVFile reads and decodes a WAV file from disk.
func DecodeWAVFile(path string) ([]byte, Format, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Format{}, fmt.Errorf("unable to read clip: %w", err)
	}
	return DecodeWAV(data)
}

// ClipDuration reports the playback duration of a WAV file on disk. Used
// to fill in durations the manifest omits.
func ClipDuration(path string) (time.Duration, error) {
	pcm, format, err := DecodeWAVFile(path)
	if err != nil {
		return 0, err
	}
	return format.DurationOf(int64(len(pcm))), nil
}

// EncodeWAV wraps raw PCM samples in a minimal WAV container.
func EncodeWAV(pcm []byte, format Format) []byte {
	var buf bytes.Buffer
	dataLen := uint32(len(pcm))

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(format.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(format.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(format.ByteRate()))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(format.BytesPerFrame()))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(BitDepth))

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(pcm)

	return buf.Bytes()
}
