package sampler

import (
	"testing"

	"github.com/rlowe/loopcore/decode"
	"github.com/rlowe/loopcore/timeline"
)

func monoRampPCM(sampleRate, frames int) decode.PCM {
	samples := make([]int16, frames)
	for i := range samples {
		samples[i] = int16(i)
	}
	return decode.PCM{SampleRate: sampleRate, ChannelCount: 1, Samples: samples}
}

func TestRingSamplerSilentUntilStarted(t *testing.T) {
	r := NewRingSampler(monoRampPCM(1000, 100))
	out := make([]int16, 10)
	r.Render(out, timeline.Zero)
	for i, v := range out {
		if v != 0 {
			t.Errorf("sample %d = %d, want silence before start", i, v)
		}
	}
}

func TestRingSamplerStartsFromPosition(t *testing.T) {
	r := NewRingSampler(monoRampPCM(1000, 100))
	r.StartFromPositionAtTime(timeline.Zero, timeline.FromSamples(10, 1000))

	out := make([]int16, 5)
	r.Render(out, timeline.Zero)
	want := []int16{10, 11, 12, 13, 14}
	for i := range out {
		if out[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestRingSamplerStopSilences(t *testing.T) {
	r := NewRingSampler(monoRampPCM(1000, 100))
	r.StartFromPositionAtTime(timeline.Zero, timeline.Zero)
	r.StopAtTime(timeline.FromSamples(3, 1000))

	out := make([]int16, 6)
	r.Render(out, timeline.FromSamples(3, 1000))
	for i, v := range out {
		if v != 0 {
			t.Errorf("sample %d = %d, want silence after stop", i, v)
		}
	}
}

func TestRingSamplerLoopsWithinBounds(t *testing.T) {
	r := NewRingSampler(monoRampPCM(1000, 100))
	r.StartFromPositionAtTime(timeline.Zero, timeline.Zero)
	r.EnableLoopAtTime(timeline.Zero, timeline.FromSamples(2, 1000), timeline.FromSamples(5, 1000))

	out := make([]int16, 10)
	r.Render(out, timeline.Zero)
	// frames: 0,1,2,3,4, then wraps to loopLo=2: 2,3,4,2,3
	want := []int16{0, 1, 2, 3, 4, 2, 3, 4, 2, 3}
	for i := range out {
		if out[i] != want[i] {
			t.Errorf("sample %d = %d, want %d (%v)", i, out[i], want[i], out)
			break
		}
	}
}

func TestRingSamplerCancelAllDiscardsPendingEvents(t *testing.T) {
	r := NewRingSampler(monoRampPCM(1000, 100))
	r.StartFromPositionAtTime(timeline.FromSamples(1, 1000), timeline.Zero)
	r.CancelAll()

	out := make([]int16, 5)
	r.Render(out, timeline.FromSamples(5, 1000))
	for i, v := range out {
		if v != 0 {
			t.Errorf("sample %d = %d, want silence: cancelled event must not apply", i, v)
		}
	}
}

func TestRingSamplerStopsAtEndOfSampleWithoutLoop(t *testing.T) {
	r := NewRingSampler(monoRampPCM(1000, 4))
	r.StartFromPositionAtTime(timeline.Zero, timeline.Zero)

	out := make([]int16, 8)
	r.Render(out, timeline.Zero)
	want := []int16{0, 1, 2, 3, 0, 0, 0, 0}
	for i := range out {
		if out[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, out[i], want[i])
		}
	}
}
