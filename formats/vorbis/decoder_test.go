// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// mockOggReader returns at most packet values per call, like a decoder
// handing out one packet at a time.
type mockOggReader struct {
	channels int
	samples  []float32
	offset   int
	packet   int
	err      error
}

func (m *mockOggReader) SampleRate() int { return 48000 }
func (m *mockOggReader) Channels() int   { return m.channels }

func (m *mockOggReader) Read(p []float32) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}
	if m.packet > 0 && len(p) > m.packet {
		p = p[:m.packet]
	}
	n := copy(p, m.samples[m.offset:])
	m.offset += n
	if m.offset >= len(m.samples) {
		return n, io.EOF
	}

	return n, nil
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("OggS but not really a vorbis stream")} {
		if _, err := (Decoder{}).Decode(bytes.NewReader(data)); !errors.Is(err, ErrNotVorbis) {
			t.Errorf("Decode(%q) error = %v, want ErrNotVorbis", data, err)
		}
	}
}

func TestSource_ReadSamples_ValuesNotFrames(t *testing.T) {
	t.Parallel()

	in := []float32{0.1, -0.1, 0.2, -0.2, 0.3, -0.3}
	s := &source{dec: &mockOggReader{channels: 2, samples: in}, sampleRate: 48000, channels: 2}

	dst := make([]float32, 16)
	n, err := s.ReadSamples(dst)
	if err != nil {
		t.Fatalf("ReadSamples() error = %v", err)
	}
	if n != len(in) {
		t.Fatalf("n = %d, want %d", n, len(in))
	}
	for i := range in {
		if dst[i] != in[i] {
			t.Errorf("sample %d = %v, want %v", i, dst[i], in[i])
		}
	}
	if n, err := s.ReadSamples(dst); n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("after end = %d, %v", n, err)
	}
}

func TestSource_ReadSamples_Packets(t *testing.T) {
	t.Parallel()

	in := make([]float32, 30)
	for i := range in {
		in[i] = float32(i) / 100
	}
	s := &source{dec: &mockOggReader{channels: 1, samples: in, packet: 8}, channels: 1}

	var got []float32
	buf := make([]float32, 16)
	for {
		n, err := s.ReadSamples(buf)
		got = append(got, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if len(got) != len(in) {
		t.Fatalf("read %d samples, want %d", len(got), len(in))
	}
	if got[29] != in[29] {
		t.Errorf("last sample = %v", got[29])
	}
}

func TestSource_ReadSamples_Error(t *testing.T) {
	t.Parallel()

	errCorrupt := errors.New("corrupt page")
	s := &source{dec: &mockOggReader{channels: 2, err: errCorrupt}, channels: 2}
	if _, err := s.ReadSamples(make([]float32, 8)); !errors.Is(err, errCorrupt) {
		t.Errorf("err = %v", err)
	}
	if n, err := s.ReadSamples(make([]float32, 1)); n != 0 || err != nil {
		t.Errorf("dst smaller than a frame = %d, %v", n, err)
	}
}

func TestSource_BufSize(t *testing.T) {
	t.Parallel()

	for chans, want := range map[int]int{1: 4096, 2: 4096, 6: 4092} {
		s := &source{channels: chans}
		if got := s.BufSize(); got != want {
			t.Errorf("%d channels: BufSize() = %d, want %d", chans, got, want)
		}
	}
}
