// SPDX-License-Identifier: EPL-2.0

package aiff_test

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ik5/spatmix/audio"
	"github.com/ik5/spatmix/formats/aiff"
)

// Example registers the decoder under its usual file extensions.
func Example() {
	reg := audio.NewRegistry()
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})

	fmt.Println(reg.Formats())
	// Output: [aif aiff]
}

func ExampleDecoder_Decode_errorHandling() {
	_, err := aiff.Decoder{}.Decode(strings.NewReader("RIFF....WAVE"))
	fmt.Println(errors.Is(err, aiff.ErrNotAiffFile))
	// Output: true
}
