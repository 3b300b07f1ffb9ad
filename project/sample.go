package project

import "github.com/rlowe/loopcore/timeline"

// Sample is a reference to a decoded audio asset. Decoded PCM itself lives
// in a sampler, not here; Sample only carries the metadata the sequence
// builder needs to convert between beats, seconds and sample frames.
type Sample struct {
	ID   ID
	Name string
	// Path names the source file the engine's decode collaborator reads
	// to produce the PCM a sampler plays. SampleRate/SampleCount/
	// ChannelCount describe the decoded result, not the file on disk, and
	// are only valid once a decode has completed for this sample.
	Path         string
	Tempo        timeline.Tempo
	SampleRate   int
	SampleCount  int
	ChannelCount int
}

// Valid reports whether the sample has a usable sample rate and frame
// count. A zero-length or zero-rate sample cannot be played and is
// treated as structurally invalid rather than merely silent.
func (s Sample) Valid() bool {
	return s.SampleRate > 0 && s.SampleCount > 0
}

// BeatLength returns the length of the sample expressed in beats at its
// own tempo.
func (s Sample) BeatLength() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(s.SampleCount) * s.Tempo.BeatFrequency() / float64(s.SampleRate)
}
