// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"io"
	"testing"

	goaiff "github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/ik5/spatmix/formats/wav"
)

// encodeAIFF builds an AIFF file in memory through the go-audio encoder.
func encodeAIFF(t testing.TB, rate, bits, chans int, data []int) []byte {
	t.Helper()

	var w wav.WriteBuffer
	enc := goaiff.NewEncoder(&w, rate, bits, chans)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: chans, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bits,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("aiff encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("aiff close: %v", err)
	}

	return w.Bytes()
}

// mockAiffReader stands in for aiff.Decoder.
type mockAiffReader struct {
	channels int
	samples  []int
	offset   int
	err      error
}

func (m *mockAiffReader) Format() *goaudio.Format {
	return &goaudio.Format{SampleRate: 44100, NumChannels: m.channels}
}

func (m *mockAiffReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	n := copy(buf.Data, m.samples[m.offset:])
	m.offset += n
	if m.offset >= len(m.samples) {
		return n, io.EOF
	}

	return n, nil
}

func TestDecoder_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		bits  int
		chans int
		data  []int
		want  []float32
	}{
		{"16-bit mono", 16, 1, []int{0, 16384, -16384, -32768}, []float32{0, 0.5, -0.5, -1}},
		{"16-bit stereo", 16, 2, []int{8192, -8192, 0, 32767}, []float32{0.25, -0.25, 0, 32767.0 / 32768}},
		{"24-bit mono", 24, 1, []int{4194304, -2097152}, []float32{0.5, -0.25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := encodeAIFF(t, 44100, tt.bits, tt.chans, tt.data)
			src, err := Decoder{}.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if src.SampleRate() != 44100 || src.Channels() != tt.chans {
				t.Fatalf("format = %d Hz %d ch", src.SampleRate(), src.Channels())
			}

			dst := make([]float32, 64)
			n, err := src.ReadSamples(dst)
			if err != nil && !errors.Is(err, io.EOF) {
				t.Fatalf("ReadSamples() error = %v", err)
			}
			if n != len(tt.want) {
				t.Fatalf("n = %d, want %d", n, len(tt.want))
			}
			for i, w := range tt.want {
				if dst[i] != w {
					t.Errorf("sample %d = %v, want %v", i, dst[i], w)
				}
			}
		})
	}
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("This is not AIFF data")} {
		if _, err := (Decoder{}).Decode(bytes.NewReader(data)); !errors.Is(err, ErrNotAiffFile) {
			t.Errorf("Decode(%q) error = %v, want ErrNotAiffFile", data, err)
		}
	}
}

func TestSource_ReadSamples_WholeFrames(t *testing.T) {
	t.Parallel()

	s := &source{
		dec:      &mockAiffReader{channels: 2, samples: []int{1, 2, 3, 4, 5, 6}},
		channels: 2,
		bitDepth: 16,
	}

	dst := make([]float32, 5)
	n, err := s.ReadSamples(dst)
	if err != nil || n != 4 {
		t.Fatalf("first read = %d, %v", n, err)
	}
	// The mock reports EOF alongside the last samples; they are still returned.
	n, err = s.ReadSamples(dst)
	if err != nil || n != 2 {
		t.Fatalf("second read = %d, %v", n, err)
	}
	if n, err := s.ReadSamples(dst); n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("third read = %d, %v", n, err)
	}
}

func TestSource_ReadSamples_Error(t *testing.T) {
	t.Parallel()

	s := &source{dec: &mockAiffReader{channels: 1, err: io.ErrUnexpectedEOF}, channels: 1, bitDepth: 16}
	if _, err := s.ReadSamples(make([]float32, 8)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("err = %v", err)
	}
}

func TestSource_BitDepthNormalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bits  int
		value int
	}{
		{8, 64},
		{16, 16384},
		{24, 4194304},
		{32, 1073741824},
	}
	for _, tt := range tests {
		s := &source{
			dec:      &mockAiffReader{channels: 1, samples: []int{tt.value}},
			channels: 1,
			bitDepth: tt.bits,
		}
		dst := make([]float32, 1)
		if _, err := s.ReadSamples(dst); err != nil {
			t.Fatalf("%d-bit: %v", tt.bits, err)
		}
		if dst[0] != 0.5 {
			t.Errorf("%d-bit: got %v, want 0.5", tt.bits, dst[0])
		}
	}
}

func TestSource_BufSize(t *testing.T) {
	t.Parallel()

	s := &source{dec: &mockAiffReader{channels: 1, samples: make([]int, 512)}, channels: 1, bitDepth: 16}
	if got := s.BufSize(); got != 4096 {
		t.Errorf("BufSize() = %d before any read", got)
	}
	s.ReadSamples(make([]float32, 256))
	if got := s.BufSize(); got != 256 {
		t.Errorf("BufSize() = %d after read", got)
	}
}

func BenchmarkSource_ReadSamples(b *testing.B) {
	data := encodeAIFF(b, 44100, 16, 2, make([]int, 44100*2))
	dst := make([]float32, 4096)
	b.ResetTimer()
	for range b.N {
		src, err := Decoder{}.Decode(bytes.NewReader(data))
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := src.ReadSamples(dst); err != nil {
				break
			}
		}
	}
}
