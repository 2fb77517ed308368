// SPDX-License-Identifier: EPL-2.0

// Package backend drives an engine.Device from an output.
//
// A backend pulls mixed audio by calling Device.Render. Three drivers are
// provided:
//   - Oto plays through the platform audio device with ebitengine/oto.
//   - Streamer exposes a stereo device as a beep.Streamer so it can be fed
//     into a beep mixer or speaker.
//   - Null renders on a timer at the device rate, optionally into an
//     io.Writer, for servers and tests without audio hardware.
//
// Building with the headless tag replaces the oto driver with one that
// runs on Null.
//
// Every driver stops with ErrDisconnected once the device is disconnected.
package backend
