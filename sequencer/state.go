package sequencer

import "github.com/rlowe/loopcore/project"

// PlayState is whether the sequencer currently has an active sequence
// point covering its current time.
type PlayState int

const (
	Stopped PlayState = iota
	Playing
)

func (s PlayState) String() string {
	if s == Playing {
		return "Playing"
	}
	return "Stopped"
}

// PlaybackState is the sequencer's externally-visible transport status.
type PlaybackState struct {
	Playing         PlayState
	SongID          project.ID
	SectionID       project.ID
	QueuedSongID    project.ID // project.InvalidID if none queued
	QueuedSectionID project.ID
	Looping         bool
}

// Progress is the sequencer's externally-visible position within the
// currently playing section and song.
type Progress struct {
	SongProgress    float64 // [0,1]
	SectionProgress float64 // [0,1]
	SectionBeat     float64
}
