package project

// Info carries the project's own identity, separate from the songs it
// contains.
type Info struct {
	ID   ID
	Name string
}

// Selections records which song and section are currently selected for
// playback.
type Selections struct {
	SongID    ID
	SectionID ID
}

// Project is a user's set of songs plus the current selection. Projects
// and the sections/songs they contain are created by the controller and
// consumed by the sequencer by value: the sequencer snapshots a Project
// and never holds a reference back into the controller's mutable state.
type Project struct {
	Info       Info
	Songs      []Song
	Selections Selections
}

// SongByID returns the song with the given id and whether it was found.
func (p Project) SongByID(id ID) (Song, bool) {
	for _, s := range p.Songs {
		if s.ID == id {
			return s, true
		}
	}
	return Song{}, false
}

// SectionByID returns the section with the given id within the song with
// the given id.
func (p Project) SectionByID(songID, sectionID ID) (Section, bool) {
	song, ok := p.SongByID(songID)
	if !ok {
		return Section{}, false
	}
	return song.SectionByID(sectionID)
}

// IndexOfSong returns the index of the song with the given id, or -1.
func (p Project) IndexOfSong(id ID) int {
	for i, s := range p.Songs {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// IsValid reports whether every song in the project is structurally valid,
// returning a *ValidationError naming the offending songs when it is not.
func (p Project) IsValid() error {
	var bad []ID
	for _, s := range p.Songs {
		if !s.Valid() {
			bad = append(bad, s.ID)
		}
	}
	if len(bad) > 0 {
		return &ValidationError{InvalidSongIDs: bad}
	}
	return nil
}

// SelectionValid reports whether the current selection names a song and a
// section that both actually exist.
func (p Project) SelectionValid() bool {
	song, ok := p.SongByID(p.Selections.SongID)
	if !ok {
		return false
	}
	_, ok = song.SectionByID(p.Selections.SectionID)
	return ok
}

// SelectedSong returns the currently selected song, if any.
func (p Project) SelectedSong() (Song, bool) {
	return p.SongByID(p.Selections.SongID)
}

// SelectedSection returns the currently selected section, if any.
func (p Project) SelectedSection() (Section, bool) {
	return p.SectionByID(p.Selections.SongID, p.Selections.SectionID)
}
