// SPDX-License-Identifier: EPL-2.0

package spatmix

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/spatmix/audio"
	"github.com/ik5/spatmix/engine"
	"github.com/ik5/spatmix/formats/aiff"
	"github.com/ik5/spatmix/formats/flac"
	"github.com/ik5/spatmix/formats/mp3"
	"github.com/ik5/spatmix/formats/vorbis"
	"github.com/ik5/spatmix/formats/wav"
)

// NewRegistry returns a registry with every bundled decoder, keyed by the
// usual file extensions.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})
	reg.Register("flac", flac.Decoder{})

	return reg
}

// LoadOptions controls how decoded PCM becomes a buffer.
type LoadOptions struct {
	// Mono averages all channels into one, so the buffer can be played as
	// a positional source.
	Mono bool
	// MaxFrames caps the decoded length. Zero means no cap.
	MaxFrames int
}

var layoutByChannels = map[int]engine.ChannelLayout{
	1: engine.ChannelsMono,
	2: engine.ChannelsStereo,
	4: engine.ChannelsQuad,
	6: engine.Channels51,
	7: engine.Channels61,
	8: engine.Channels71,
}

// BufferFromSource drains src into a float buffer. The source is not
// closed.
func BufferFromSource(src audio.Source, opts LoadOptions) (*engine.Buffer, error) {
	if opts.Mono && src.Channels() != 1 {
		src = audio.NewDownmixer(src)
	}
	layout, ok := layoutByChannels[src.Channels()]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChannels, src.Channels())
	}

	samples, err := audio.ReadAll(src, opts.MaxFrames)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return engine.NewBufferFloat32(layout, src.SampleRate(), samples)
}

// LoadBuffer decodes r with the decoder registered for format.
func LoadBuffer(reg *audio.Registry, format string, r io.Reader, opts LoadOptions) (*engine.Buffer, error) {
	src, err := reg.Decode(format, r)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return BufferFromSource(src, opts)
}

// FormatOf returns the registry key for a file name: its extension,
// lower-cased and without the dot.
func FormatOf(name string) (string, error) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %q", ErrNoFormat, name)
	}

	return strings.ToLower(ext), nil
}

// LoadFile opens and decodes one file, picking the decoder by extension.
func LoadFile(reg *audio.Registry, path string, opts LoadOptions) (*engine.Buffer, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	defer f.Close()

	b, err := LoadBuffer(reg, format, f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return b, nil
}

// LoadFiles decodes paths concurrently, at most GOMAXPROCS at a time. The
// result is in the same order as paths. The first failure cancels the
// files not yet started and is returned.
func LoadFiles(ctx context.Context, reg *audio.Registry, paths []string, opts LoadOptions) ([]*engine.Buffer, error) {
	out := make([]*engine.Buffer, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := LoadFile(reg, path, opts)
			if err != nil {
				return err
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
