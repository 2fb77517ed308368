// SPDX-License-Identifier: EPL-2.0

// Package engine is the real-time mixer: devices, contexts, listeners,
// sources, buffers and effect slots.
//
// A Device owns the output format and is driven by calling Render (or
// RenderFloat32) from a single goroutine, usually a backend. Each Render
// call mixes in blocks of at most Config.UpdateSize frames.
//
//	dev, err := engine.NewDevice(engine.WithSampleRate(48000))
//	ctx := dev.NewContext()
//	buf, err := engine.NewBufferFloat32(engine.ChannelsMono, 44100, pcm)
//	src := ctx.NewSource()
//	src.Queue(buf)
//	src.SetPosition(vecmath.Vec3{2, 0, -1})
//	src.Play()
//	dev.Render(out, frames)
//
// # Property updates
//
// Setters on Listener, Source and EffectSlot change control-side state and
// publish an immutable snapshot to the mixer without blocking it. Between
// Context.DeferUpdates and Context.ProcessUpdates changes are only marked
// and then published as one batch. With Config.LazyUpdates the mixer
// publishes marked changes itself at the start of each block.
//
// # Threading
//
// Setters may be called from any goroutine. Play, Pause, Stop, seeking and
// voice allocation take the device lock, which the mixer holds for one
// block at a time.
package engine
