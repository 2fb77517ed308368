// SPDX-License-Identifier: EPL-2.0

// Package effect implements the processors that run on auxiliary effect
// slots. Each slot owns one State. The state reads the slot's first-order
// ambisonic wet buffer and adds its output to the device's dry buffer.
//
// DeviceUpdate allocates and may block; it runs on a control goroutine when
// a state is created or the device format changes. Update and Process run on
// the mixer goroutine and never allocate.
package effect
