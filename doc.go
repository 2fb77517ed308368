// SPDX-License-Identifier: EPL-2.0

// Package spatmix is a real-time 3D audio mixer: sources placed around a
// listener are resampled, filtered, panned (or rendered through an HRTF),
// sent through auxiliary effects and mixed into an output device buffer one
// block at a time.
//
// The engine itself lives in the engine package and never decodes audio.
// This package joins it to the decoders in formats/... and adds offline
// rendering:
//
//	reg := spatmix.NewRegistry()
//	buf, err := spatmix.LoadFile(reg, "steps.ogg", spatmix.LoadOptions{Mono: true})
//
//	dev, err := engine.NewDevice(engine.WithHRTF(true))
//	ctx := dev.NewContext()
//	src := ctx.NewSource()
//	src.SetPosition(vecmath.Vec3{1, 0, -2})
//	src.Queue(buf)
//	src.Play()
//
//	f, _ := os.Create("out.wav")
//	err = spatmix.RenderWAV(f, dev, spatmix.Frames(dev, 10*time.Second), 16)
//
// For live output hand the device to a driver in the backend package.
//
// # Packages
//
//   - engine: devices, contexts, sources, listener, effect slots, the mixer
//   - panning, hrtf, resample, dsp, effect: the DSP stages the mixer runs
//   - backend: oto, beep and timer driven outputs that pull from a device
//   - audio, formats/...: decoded PCM sources for wav, aiff, mp3, ogg, flac
//
// LoadFiles decodes many files at once, bounded by GOMAXPROCS.
package spatmix
