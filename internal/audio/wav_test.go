package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testFormat is a small layout that keeps fixture files tiny.
var testFormat = Format{SampleRate: 8000, Channels: 1}

// writeClip writes a silent WAV of the given duration and returns its path.
func writeClip(t *testing.T, dir string, d time.Duration, format Format) string {
	t.Helper()
	pcm := make([]byte, format.OffsetAt(d))
	path := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(path, EncodeWAV(pcm, format), 0o600); err != nil {
		t.Fatalf("writing clip: %v", err)
	}
	return path
}

// TestFormatConversions tests byte/duration round trips.
func TestFormatConversions(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		d      time.Duration
		bytes  int64
	}{
		{"one second mono 8k", Format{8000, 1}, time.Second, 16000},
		{"half second stereo 44k", Format{44100, 2}, 500 * time.Millisecond, 88200},
		{"zero", Format{8000, 1}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.OffsetAt(tt.d); got != tt.bytes {
				t.Errorf("OffsetAt(%v) = %d, want %d", tt.d, got, tt.bytes)
			}
			if got := tt.format.DurationOf(tt.bytes); got != tt.d {
				t.Errorf("DurationOf(%d) = %v, want %v", tt.bytes, got, tt.d)
			}
		})
	}
}

// TestOffsetAtFrameAligned tests that seek offsets never split a frame.
func TestOffsetAtFrameAligned(t *testing.T) {
	format := Format{SampleRate: 44100, Channels: 2}
	for _, d := range []time.Duration{
		1 * time.Millisecond,
		333 * time.Millisecond,
		7*time.Second + 13*time.Millisecond,
	} {
		off := format.OffsetAt(d)
		if off%int64(format.BytesPerFrame()) != 0 {
			t.Errorf("OffsetAt(%v) = %d not frame aligned", d, off)
		}
	}
}

// TestDecodeWAVRoundTrip tests that EncodeWAV output decodes to the same
// samples and format.
func TestDecodeWAVRoundTrip(t *testing.T) {
	pcm := make([]byte, 320)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	decoded, format, err := DecodeWAV(EncodeWAV(pcm, testFormat))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if format != testFormat {
		t.Errorf("format = %+v, want %+v", format, testFormat)
	}
	if len(decoded) != len(pcm) {
		t.Fatalf("decoded %d bytes, want %d", len(decoded), len(pcm))
	}
	for i := range pcm {
		if decoded[i] != pcm[i] {
			t.Fatalf("byte %d = %d, want %d", i, decoded[i], pcm[i])
		}
	}
}

// TestDecodeWAVRejectsGarbage tests the error paths for non-WAV input.
func TestDecodeWAVRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("RIFF")},
		{"wrong magic", []byte("OGGS this is not a wav file at all......")},
		{"header only", []byte("RIFF\x00\x00\x00\x00WAVE")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// TestDecodeWAVRejectsNonPCM tests that compressed or non-16-bit files are
// refused rather than misplayed.
func TestDecodeWAVRejectsNonPCM(t *testing.T) {
	wav := EncodeWAV(make([]byte, 64), testFormat)
	// Flip the audio format field in the fmt chunk to 85 (MP3).
	wav[20] = 85
	if _, _, err := DecodeWAV(wav); err == nil {
		t.Error("expected ErrUnsupportedWAV for non-PCM encoding")
	}

	wav = EncodeWAV(make([]byte, 64), testFormat)
	// Claim 8-bit samples.
	wav[34] = 8
	if _, _, err := DecodeWAV(wav); err == nil {
		t.Error("expected ErrUnsupportedWAV for 8-bit samples")
	}
}

// TestClipDuration tests duration probing from disk.
func TestClipDuration(t *testing.T) {
	path := writeClip(t, t.TempDir(), 750*time.Millisecond, testFormat)

	d, err := ClipDuration(path)
	if err != nil {
		t.Fatalf("ClipDuration: %v", err)
	}
	if d != 750*time.Millisecond {
		t.Errorf("duration = %v, want 750ms", d)
	}
}
