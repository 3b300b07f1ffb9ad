// Package sampler is the audio-engine collaborator boundary: the sequencer
// and metronome schedule events against the Sampler interface, never
// against a concrete audio graph.
package sampler

import "github.com/rlowe/loopcore/timeline"

// Context is the handle the owning engine uses to drive the audio device
// itself (as opposed to scheduling events on one voice of it).
type Context interface {
	CurrentTime() timeline.Timestamp
	SampleRate() int
	ProcessNotifications()
	Start() error
}

// Sampler is one schedulable playback voice: a single sample's worth of
// start/stop/loop events, queued ahead of real time and drained by the
// audio callback.
type Sampler interface {
	StartFromPositionAtTime(at, position timeline.Timestamp)
	StopAtTime(at timeline.Timestamp)
	EnableLoopAtTime(at, loopStart, loopEnd timeline.Timestamp)
	CancelAll()
}
