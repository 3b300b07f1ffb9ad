package sampler

import (
	"time"

	"github.com/rlowe/loopcore/timeline"
)

// Oscillator is the parametric tone generator the metronome drives: a
// frequency that can be scheduled to change at a future time, advanced
// by discrete scheduled events rather than continuously.
type Oscillator struct {
	pending []oscEvent
}

type oscEvent struct {
	at   timeline.Timestamp
	freq float64
}

// SetValueAtTime schedules a frequency change at t.
func (o *Oscillator) SetValueAtTime(t timeline.Timestamp, frequencyHz float64) {
	o.pending = append(o.pending, oscEvent{at: t, freq: frequencyHz})
}

// ValueAtTime returns the frequency in effect at t: the most recent
// scheduled change at or before t, or 0 if none has occurred yet.
func (o *Oscillator) ValueAtTime(t timeline.Timestamp) float64 {
	freq := 0.0
	for _, e := range o.pending {
		if e.at.After(t) {
			break
		}
		freq = e.freq
	}
	return freq
}

// ADSR is a one-shot attack/decay/sustain/release envelope, triggered at
// a scheduled time. It mirrors the fixed attack/decay/release constants
// named by the metronome package.
type ADSR struct {
	Attack  time.Duration
	Decay   time.Duration
	Sustain float64
	Release time.Duration

	pending []timeline.Timestamp
}

// NoteOnAtTime schedules an envelope trigger at t.
func (a *ADSR) NoteOnAtTime(t timeline.Timestamp) {
	a.pending = append(a.pending, t)
}

// LevelAtTime returns the envelope's output level at t, 0 if no trigger
// has started a cycle that covers t.
func (a *ADSR) LevelAtTime(t timeline.Timestamp) float64 {
	level := 0.0
	for _, trigger := range a.pending {
		if trigger.After(t) {
			break
		}
		elapsed := t.Sub(trigger)
		level = a.levelAtElapsed(time.Duration(elapsed))
	}
	return level
}

func (a *ADSR) levelAtElapsed(elapsed time.Duration) float64 {
	switch {
	case elapsed < a.Attack || (a.Attack <= 0 && elapsed == 0):
		if a.Attack <= 0 {
			return 1
		}
		return float64(elapsed) / float64(a.Attack)
	case elapsed < a.Attack+a.Decay:
		if a.Decay <= 0 {
			return a.Sustain
		}
		frac := float64(elapsed-a.Attack) / float64(a.Decay)
		return 1 - frac*(1-a.Sustain)
	case elapsed < a.Attack+a.Decay+a.Release:
		if a.Release <= 0 {
			return 0
		}
		frac := float64(elapsed-a.Attack-a.Decay) / float64(a.Release)
		return a.Sustain * (1 - frac)
	default:
		return 0
	}
}
