// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"testing"

	"github.com/ik5/spatmix/internal/audiotest"
)

type partialSource struct {
	*audiotest.MockSource
}

func (p partialSource) ReadSamples(dst []float32) (int, error) {
	n, err := p.MockSource.ReadSamples(dst)
	return max(n-1, 0), err
}

func TestReadAll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      Source
		limit    int
		wantLen  int
		wantErr  error
		checkVal bool
	}{
		{"mono", audiotest.NewConstantSource(8000, 1, 10000, 0.5), 0, 10000, nil, true},
		{"stereo", audiotest.NewConstantSource(8000, 2, 5000, 0.5), 0, 10000, nil, true},
		{"empty", audiotest.NewSilentSource(8000, 2, 0), 0, 0, nil, false},
		{"within limit", audiotest.NewConstantSource(8000, 1, 100, 0.5), 100, 100, nil, true},
		{"over limit", audiotest.NewConstantSource(8000, 1, 101, 0.5), 100, 0, ErrTooLong, false},
		{"no channels", audiotest.NewSilentSource(8000, 0, 10), 0, 0, ErrNoChannels, false},
		{"failing", audiotest.NewFailingSource(8000, 1, 5000), 0, 0, audiotest.ErrMock, false},
		{"partial frame", partialSource{audiotest.NewSilentSource(8000, 2, 10)}, 0, 0, ErrPartialFrame, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ReadAll(tt.src, tt.limit)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if tt.checkVal {
				for i, s := range got {
					if s != 0.5 {
						t.Fatalf("sample %d = %v", i, s)
					}
				}
			}
		})
	}
}

func TestReadAll_KeepsOrder(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(8000, 2, 9000, func(frame, ch int) float32 {
		return float32(frame*2+ch) / 1e5
	})
	got, err := ReadAll(src, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range got {
		if want := float32(i) / 1e5; s != want {
			t.Fatalf("sample %d = %v, want %v", i, s, want)
		}
	}
}
