package timeline

import "time"

// Timestamp is a non-negative duration from an arbitrary reference point
// (the audio engine's sample clock, not wall-clock time). It is stored as a
// time.Duration (nanoseconds) rather than a sample count so that points
// built against different sample rates and tempi compare directly.
type Timestamp time.Duration

// Zero is the reference instant.
var Zero = Timestamp(0)

// FromSeconds builds a Timestamp from a duration expressed in seconds.
// Negative input clamps to Zero.
func FromSeconds(s float64) Timestamp {
	if s < 0 {
		s = 0
	}
	return Timestamp(time.Duration(s * float64(time.Second)))
}

// FromSamples builds a Timestamp from a sample count at sampleRate Hz.
func FromSamples(n int64, sampleRate int) Timestamp {
	if sampleRate <= 0 || n <= 0 {
		return Zero
	}
	return FromSeconds(float64(n) / float64(sampleRate))
}

// FromBeats builds a Timestamp from a beat count at the given tempo.
func FromBeats(beats float64, bpm Tempo) Timestamp {
	if beats <= 0 {
		return Zero
	}
	return FromSeconds(beats * 60.0 / bpm.BPM())
}

// AsSeconds returns the timestamp as a floating point number of seconds.
func (t Timestamp) AsSeconds() float64 {
	return time.Duration(t).Seconds()
}

// AsBeats returns the timestamp expressed in beats at the given tempo.
func (t Timestamp) AsBeats(bpm Tempo) float64 {
	return t.AsSeconds() * bpm.BPM() / 60.0
}

// IncrementedByBeats returns t advanced by the given number of beats at the
// given tempo. beats may be negative (moving the point earlier), but the
// result never goes below Zero.
func (t Timestamp) IncrementedByBeats(beats float64, bpm Tempo) Timestamp {
	delta := beats * 60.0 / bpm.BPM()
	return FromSeconds(t.AsSeconds() + delta)
}

// Add returns t + d.
func (t Timestamp) Add(d Timestamp) Timestamp {
	return Timestamp(time.Duration(t) + time.Duration(d))
}

// Sub returns t - d. The caller must guarantee t >= d; as with the rest of
// this package, an out-of-range result clamps to Zero rather than going
// negative or panicking.
func (t Timestamp) Sub(d Timestamp) Timestamp {
	r := time.Duration(t) - time.Duration(d)
	if r < 0 {
		return Zero
	}
	return Timestamp(r)
}

// Before reports whether t < u.
func (t Timestamp) Before(u Timestamp) bool { return t < u }

// After reports whether t > u.
func (t Timestamp) After(u Timestamp) bool { return t > u }

// Max returns the later of t and u.
func Max(t, u Timestamp) Timestamp {
	if t > u {
		return t
	}
	return u
}

// Min returns the earlier of t and u.
func Min(t, u Timestamp) Timestamp {
	if t < u {
		return t
	}
	return u
}

func (t Timestamp) String() string {
	return time.Duration(t).String()
}
