package project

// Section addresses a time window, in beats into its song's sample, that
// can be looped and independently metronome-enabled.
type Section struct {
	ID               ID
	Name             string
	Start            float64 // beats into the song's sample
	LoopEnabled      bool
	MetronomeEnabled bool
}

// Valid reports whether the section's start position is sane.
func (s Section) Valid() bool {
	return s.Start >= 0
}
