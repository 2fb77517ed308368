// SPDX-License-Identifier: EPL-2.0

package mp3_test

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ik5/spatmix/audio"
	"github.com/ik5/spatmix/formats/mp3"
)

func ExampleDecoder_Decode_errorHandling() {
	reg := audio.NewRegistry()
	reg.Register("mp3", mp3.Decoder{})

	_, err := reg.Decode("MP3", strings.NewReader("ID3 but nothing else"))
	fmt.Println(errors.Is(err, mp3.ErrNotMP3))
	// Output: true
}
