package sampler

import (
	"sync"

	"github.com/rlowe/loopcore/decode"
	"github.com/rlowe/loopcore/timeline"
)

// ringCapacity bounds how many scheduled events can be in flight at once.
// A sequencer install() call schedules at most a handful of events per
// sampler per transition, so this comfortably covers bursts without
// needing to grow.
const ringCapacity = 64

type eventKind int

const (
	eventStart eventKind = iota
	eventStop
	eventLoop
)

type scheduledEvent struct {
	kind      eventKind
	at        timeline.Timestamp
	position  timeline.Timestamp
	loopStart timeline.Timestamp
	loopEnd   timeline.Timestamp
}

// RingSampler is the reference Sampler implementation: a single-writer
// (control side) / single-reader (audio callback) ring of scheduled
// events backed by a fixed buffer with separate read/write cursors.
//
// Every cursor access (scheduling, CancelAll, and Render's draining of due
// events) takes a mutex scoped to the ring's cursors, so Render and the
// scheduling methods never block each other for longer than a cursor
// update.
type RingSampler struct {
	mu    sync.Mutex
	ring  [ringCapacity]scheduledEvent
	read  int
	write int

	pcm     decode.PCM
	playing bool
	pos     int64 // sample frame within pcm.Samples
	looping bool
	loopLo  int64
	loopHi  int64
}

// NewRingSampler builds a RingSampler that plays back pcm when started.
func NewRingSampler(pcm decode.PCM) *RingSampler {
	return &RingSampler{pcm: pcm}
}

func (r *RingSampler) push(e scheduledEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := (r.write + 1) % ringCapacity
	if next == r.read {
		// Ring full: drop the oldest pending event rather than block the
		// caller. The control side never schedules more than a handful of
		// events per transition, so this only triggers under a bug.
		r.read = (r.read + 1) % ringCapacity
	}
	r.ring[r.write] = e
	r.write = next
}

func (r *RingSampler) StartFromPositionAtTime(at, position timeline.Timestamp) {
	r.push(scheduledEvent{kind: eventStart, at: at, position: position})
}

func (r *RingSampler) StopAtTime(at timeline.Timestamp) {
	r.push(scheduledEvent{kind: eventStop, at: at})
}

func (r *RingSampler) EnableLoopAtTime(at, loopStart, loopEnd timeline.Timestamp) {
	r.push(scheduledEvent{kind: eventLoop, at: at, loopStart: loopStart, loopEnd: loopEnd})
}

// CancelAll discards every pending event and silences the voice. Scoped
// to the ring's own lock, never the sequencer's, so it cannot hold up
// rendering for longer than a cursor reset.
func (r *RingSampler) CancelAll() {
	r.mu.Lock()
	r.write = r.read
	r.mu.Unlock()
	r.playing = false
}

// Render stands in for the audio callback: it drains every pending event
// whose time has arrived by now, then fills out with interleaved PCM
// frames starting from the voice's current position. out is assumed to
// carry the same channel count as the source PCM; callers mixing sources
// of differing channel counts into one device stream (cmd/loopplay always
// decodes to the device's own channel count, see decode.WAVDecoder) are
// responsible for keeping that consistent.
func (r *RingSampler) Render(out []int16, now timeline.Timestamp) {
	for {
		r.mu.Lock()
		if r.read == r.write {
			r.mu.Unlock()
			break
		}
		ev := r.ring[r.read]
		if ev.at.After(now) {
			r.mu.Unlock()
			break
		}
		r.read = (r.read + 1) % ringCapacity
		r.mu.Unlock()
		r.apply(ev)
	}

	channels := r.pcm.ChannelCount
	if channels <= 0 {
		channels = 1
	}
	for i := 0; i < len(out); i += channels {
		if !r.playing {
			for c := 0; c < channels && i+c < len(out); c++ {
				out[i+c] = 0
			}
			continue
		}
		frameStart := r.pos * int64(channels)
		for c := 0; c < channels && i+c < len(out); c++ {
			idx := frameStart + int64(c)
			if idx >= 0 && int(idx) < len(r.pcm.Samples) {
				out[i+c] = r.pcm.Samples[idx]
			} else {
				out[i+c] = 0
			}
		}
		r.pos++
		if r.looping && r.pos >= r.loopHi {
			r.pos = r.loopLo
		} else if r.pos*int64(channels) >= int64(len(r.pcm.Samples)) {
			r.playing = false
		}
	}
}

func (r *RingSampler) apply(ev scheduledEvent) {
	switch ev.kind {
	case eventStart:
		r.pos = samplesFromTimestamp(ev.position, r.pcm.SampleRate)
		r.playing = true
		r.looping = false
	case eventStop:
		r.playing = false
	case eventLoop:
		r.looping = true
		r.loopLo = samplesFromTimestamp(ev.loopStart, r.pcm.SampleRate)
		r.loopHi = samplesFromTimestamp(ev.loopEnd, r.pcm.SampleRate)
	}
}

func samplesFromTimestamp(t timeline.Timestamp, sampleRate int) int64 {
	if sampleRate <= 0 {
		return 0
	}
	return int64(t.AsSeconds() * float64(sampleRate))
}
