// SPDX-License-Identifier: EPL-2.0

package utils

// Float32ToInt16 scales a [-1,1] sample to signed 16-bit PCM, saturating at
// both ends of the range.
func Float32ToInt16(x float32) int16 {
	v := x * 32768.0
	if v >= 32767.0 {
		return 32767
	}
	if v <= -32768.0 {
		return -32768
	}
	return int16(v)
}

// Float32ToInt32 scales a [-1,1] sample to signed 32-bit PCM. The math is done
// in float64 since float32 cannot represent 2^31-1.
func Float32ToInt32(x float32) int32 {
	v := float64(x) * 2147483648.0
	if v >= 2147483647.0 {
		return 2147483647
	}
	if v <= -2147483648.0 {
		return -2147483648
	}
	return int32(v)
}

// Float32ToUint8 converts to offset-binary 8-bit PCM (silence is 128).
func Float32ToUint8(x float32) uint8 {
	v := x*128.0 + 128.0
	if v >= 255.0 {
		return 255
	}
	if v <= 0 {
		return 0
	}
	return uint8(v)
}

// Uint8ToFloat32 is the inverse of Float32ToUint8.
func Uint8ToFloat32(v uint8) float32 {
	return float32(int(v)-128) * (1.0 / 128.0)
}

// Int16ToFloat32 maps signed 16-bit PCM onto [-1,1).
func Int16ToFloat32(v int16) float32 {
	return float32(v) * (1.0 / 32768.0)
}

// IntToFloat32 maps a signed PCM integer of the given bit depth onto
// [-1,1). Unknown depths are treated as 16-bit.
func IntToFloat32(v, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return float32(v) * (1.0 / 128.0)
	case 24:
		return float32(v) * (1.0 / 8388608.0)
	case 32:
		return float32(float64(v) * (1.0 / 2147483648.0))
	}

	return float32(v) * (1.0 / 32768.0)
}
