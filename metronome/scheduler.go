// Package metronome schedules bar and beat click events from the sequence
// the sequencer is currently playing, a fixed lookahead window ahead of
// the current time, without drifting across tempo changes.
package metronome

import (
	"time"

	"github.com/rlowe/loopcore/sequence"
	"github.com/rlowe/loopcore/timeline"
)

// Tone and envelope parameters. These mirror the fixed click sound a
// physical metronome makes: a higher tone on the downbeat of each bar, a
// lower tone on the other beats.
const (
	BarToneHz    = 2000.0
	BeatToneHz   = 1000.0
	LevelDB      = -6.0
	AttackTime   = 5 * time.Millisecond
	DecayTime    = 15 * time.Millisecond
	SustainLevel = 0.0
	ReleaseTime  = 15 * time.Millisecond

	// Lookahead is how far ahead of the current time clicks are
	// pre-scheduled onto the audio engine. It must exceed the audio
	// callback period so a tick never has to schedule an event that has
	// already started rendering.
	Lookahead = 200 * time.Millisecond

	beatsPerBar = 4
)

// OscillatorTarget is the subset of the audio graph's oscillator the
// metronome drives: set its frequency at a future time.
type OscillatorTarget interface {
	SetValueAtTime(t timeline.Timestamp, frequencyHz float64)
}

// ADSRTarget is the subset of the audio graph's envelope generator the
// metronome drives: trigger its attack at a future time.
type ADSRTarget interface {
	NoteOnAtTime(t timeline.Timestamp)
}

// PointSource supplies the sequence point active at a given time. The
// sequencer implements this directly (sequencer.Sequencer.SequencePointAtTime).
type PointSource interface {
	SequencePointAtTime(t timeline.Timestamp) (sequence.Point, bool)
}

// Scheduler is the metronome's tick-driven click scheduler. It is not
// safe for concurrent use; like the sequencer, it is driven from a single
// control task.
type Scheduler struct {
	osc    OscillatorTarget
	adsr   ADSRTarget
	source PointSource

	lastScheduled timeline.Timestamp
	hasScheduled  bool
}

// New builds a Scheduler that drives osc and adsr from the points reported
// by source.
func New(osc OscillatorTarget, adsr ADSRTarget, source PointSource) *Scheduler {
	return &Scheduler{osc: osc, adsr: adsr, source: source}
}

// Tick runs one scheduling pass at the given current time. It schedules
// every beat event whose time falls in [max(now, lastScheduled),
// now+Lookahead) and advances lastScheduled to now+Lookahead. Missing a
// tick is never lossy: the next tick's wider window still covers any beat
// that has not yet been scheduled, because Lookahead comfortably exceeds
// the real tick period and lastScheduled always marks the high-water mark
// of what has already been handed to the audio engine.
func (m *Scheduler) Tick(now timeline.Timestamp) {
	lookaheadEnd := now.Add(timeline.Timestamp(Lookahead))

	p, ok := m.source.SequencePointAtTime(lookaheadEnd)
	if !ok || !p.Data.MetronomeEnabled {
		return
	}

	windowStart := now
	if m.hasScheduled {
		windowStart = timeline.Max(now, m.lastScheduled)
	}
	if !lookaheadEnd.After(windowStart) {
		return
	}

	beatDuration := time.Duration(timeline.FromBeats(1, p.Data.Tempo))
	if beatDuration <= 0 {
		return
	}

	elapsed := time.Duration(windowStart.Sub(p.StartTime))
	beatIndex := int64(elapsed / beatDuration)

	for {
		offset := time.Duration(beatIndex) * beatDuration
		beatPosition := p.StartTime.Add(timeline.Timestamp(offset))
		if !beatPosition.Before(lookaheadEnd) {
			break
		}
		if !windowStart.After(beatPosition) {
			freq := BeatToneHz
			if beatIndex%beatsPerBar == 0 {
				freq = BarToneHz
			}
			m.osc.SetValueAtTime(beatPosition, freq)
			m.adsr.NoteOnAtTime(beatPosition)
		}
		beatIndex++
	}

	m.lastScheduled = lookaheadEnd
	m.hasScheduled = true
}
