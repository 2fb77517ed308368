// SPDX-License-Identifier: EPL-2.0

package spatmix

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ik5/spatmix/audio"
	"github.com/ik5/spatmix/engine"
	"github.com/ik5/spatmix/formats/wav"
	"github.com/ik5/spatmix/internal/audiotest"
)

func encodeWAV(t *testing.T, rate, chans, frames int, level float32) []byte {
	t.Helper()

	data := make([]float32, frames*chans)
	for i := range data {
		data[i] = level
	}
	var w wav.WriteBuffer
	if err := wav.Encode(&w, rate, chans, 16, data); err != nil {
		t.Fatalf("wav.Encode: %v", err)
	}

	return w.Bytes()
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	want := []string{"aif", "aiff", "flac", "mp3", "oga", "ogg", "wav"}
	if got := NewRegistry().Formats(); !slices.Equal(got, want) {
		t.Errorf("Formats() = %v, want %v", got, want)
	}
}

func TestFormatOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
		err  error
	}{
		{"a.wav", "wav", nil},
		{"dir.v2/Rain.FLAC", "flac", nil},
		{"/tmp/x.tar.ogg", "ogg", nil},
		{"README", "", ErrNoFormat},
		{"trailing.", "", ErrNoFormat},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.name)
		if got != tt.want || !errors.Is(err, tt.err) {
			t.Errorf("FormatOf(%q) = %q, %v, want %q, %v", tt.name, got, err, tt.want, tt.err)
		}
	}
}

func TestBufferFromSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    audio.Source
		opts   LoadOptions
		layout engine.ChannelLayout
		first  float32
		err    error
	}{
		{"stereo", audiotest.NewChannelSource(44100, 100, 0.5, -0.5), LoadOptions{}, engine.ChannelsStereo, 0.5, nil},
		{"stereo to mono", audiotest.NewChannelSource(44100, 100, 0.5, -0.25), LoadOptions{Mono: true}, engine.ChannelsMono, 0.125, nil},
		{"5.1", audiotest.NewConstantSource(48000, 6, 100, 0.1), LoadOptions{}, engine.Channels51, 0.1, nil},
		{"three channels", audiotest.NewConstantSource(48000, 3, 100, 0), LoadOptions{}, 0, 0, ErrUnsupportedChannels},
		{"three channels downmixed", audiotest.NewConstantSource(48000, 3, 100, 0.3), LoadOptions{Mono: true}, engine.ChannelsMono, 0.3, nil},
		{"too long", audiotest.NewSilentSource(48000, 1, 100), LoadOptions{MaxFrames: 50}, 0, 0, audio.ErrTooLong},
		{"decode failure", audiotest.NewFailingSource(48000, 1, 10), LoadOptions{}, 0, 0, audiotest.ErrMock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := BufferFromSource(tt.src, tt.opts)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("err = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("BufferFromSource: %v", err)
			}
			if b.Layout() != tt.layout || b.Frames() != 100 {
				t.Fatalf("buffer = %v, %d frames", b.Layout(), b.Frames())
			}
			if got := b.Samples(0)[0]; got < tt.first-1e-6 || got > tt.first+1e-6 {
				t.Errorf("first sample = %v, want %v", got, tt.first)
			}
		})
	}
}

func TestLoadBuffer(t *testing.T) {
	t.Parallel()

	data := encodeWAV(t, 22050, 2, 300, 0.5)
	b, err := LoadBuffer(NewRegistry(), "WAV", bytes.NewReader(data), LoadOptions{})
	if err != nil {
		t.Fatalf("LoadBuffer: %v", err)
	}
	if b.SampleRate() != 22050 || b.Channels() != 2 || b.Frames() != 300 {
		t.Errorf("buffer = %d Hz %d ch %d frames", b.SampleRate(), b.Channels(), b.Frames())
	}
	if b.Samples(1)[299] != 0.5 {
		t.Errorf("last sample = %v", b.Samples(1)[299])
	}

	if _, err := LoadBuffer(NewRegistry(), "xm", bytes.NewReader(data), LoadOptions{}); !errors.Is(err, audio.ErrUnknownFormat) {
		t.Errorf("unknown format: %v", err)
	}
	if _, err := LoadBuffer(NewRegistry(), "wav", bytes.NewReader(data[:20]), LoadOptions{}); !errors.Is(err, wav.ErrNotWavFile) {
		t.Errorf("truncated file: %v", err)
	}
}

func TestLoadFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for i, frames := range []int{100, 200, 300, 400} {
		p := filepath.Join(dir, string(rune('a'+i))+".wav")
		if err := os.WriteFile(p, encodeWAV(t, 48000, 1, frames, 0.25), 0o600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}

	bufs, err := LoadFiles(context.Background(), NewRegistry(), paths, LoadOptions{Mono: true})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	for i, b := range bufs {
		if want := (i + 1) * 100; b.Frames() != want {
			t.Errorf("buffer %d has %d frames, want %d", i, b.Frames(), want)
		}
	}

	_, err = LoadFiles(context.Background(), NewRegistry(), append(paths, filepath.Join(dir, "missing.wav")), LoadOptions{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := LoadFiles(ctx, NewRegistry(), paths, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: %v", err)
	}
}
