package project

import (
	clone "github.com/huandu/go-clone/generic"
)

// Every mutator below follows the same shape: clone the receiver with
// clone.Clone, mutate only the clone, and return it. The caller's existing
// Project value is never touched, so holding one snapshot is always safe
// even while a mutation is in flight elsewhere (e.g. on the controller's
// own goroutine while the sequencer still reads its older snapshot).

// nextID returns an identifier not currently used by any song, section or
// sample in the project.
func (p Project) nextID() ID {
	var max ID
	for _, s := range p.Songs {
		if s.ID > max {
			max = s.ID
		}
		if s.Sample != nil && s.Sample.ID > max {
			max = s.Sample.ID
		}
		for _, sec := range s.Sections {
			if sec.ID > max {
				max = sec.ID
			}
		}
	}
	return max + 1
}

// AddSong appends a new song with nSections sections spaced 16 beats apart,
// starting at beat 0; with nSections 0 the song still gets one section at
// beat 0. The song has no sample until AddSampleToSong is called on it.
func (p Project) AddSong(nSections int) Project {
	np := clone.Clone(p)

	songID := np.nextID()
	sections := make([]Section, 0, nSections)
	nextSectionID := songID + 1
	for i := 0; i < nSections; i++ {
		sections = append(sections, Section{
			ID:    nextSectionID + ID(i),
			Name:  "Section",
			Start: float64(i) * newSectionGapBeats,
		})
	}
	if nSections == 0 {
		sections = append(sections, Section{ID: nextSectionID, Name: "Section"})
	}

	np.Songs = append(np.Songs, Song{
		ID:       songID,
		Name:     "Song",
		Tempo:    120,
		Sections: sections,
	})
	return np
}

// RemoveSong removes the song with the given id. It fails with ErrLastSong
// if it is the only song in the project, and with ErrNotFound if no song
// has that id.
func (p Project) RemoveSong(id ID) (Project, error) {
	idx := p.IndexOfSong(id)
	if idx == -1 {
		return Project{}, ErrNotFound
	}
	if len(p.Songs) == 1 {
		return Project{}, ErrLastSong
	}

	np := clone.Clone(p)
	np.Songs = append(np.Songs[:idx], np.Songs[idx+1:]...)

	if np.Selections.SongID == id {
		np.Selections = selectionAfterSongRemoval(np.Songs, idx)
	}
	return np, nil
}

// AddSectionToSong appends a new section to the named song, positioned 16
// beats after the song's current last section.
func (p Project) AddSectionToSong(songID ID) (Project, error) {
	idx := p.IndexOfSong(songID)
	if idx == -1 {
		return Project{}, ErrNotFound
	}

	np := clone.Clone(p)
	song := &np.Songs[idx]

	var start float64
	if n := len(song.Sections); n > 0 {
		start = song.Sections[n-1].Start + newSectionGapBeats
	}
	song.Sections = append(song.Sections, Section{
		ID:    np.nextID(),
		Name:  "Section",
		Start: start,
	})
	return np, nil
}

// RemoveSection removes the section with the given id. It fails with
// ErrLastSection if removing it would leave its song with zero sections,
// and with ErrNotFound if no section has that id.
func (p Project) RemoveSection(id ID) (Project, error) {
	songIdx, secIdx := p.locateSection(id)
	if songIdx == -1 {
		return Project{}, ErrNotFound
	}
	if len(p.Songs[songIdx].Sections) == 1 {
		return Project{}, ErrLastSection
	}

	np := clone.Clone(p)
	song := &np.Songs[songIdx]
	song.Sections = append(song.Sections[:secIdx], song.Sections[secIdx+1:]...)

	if np.Selections.SongID == song.ID && np.Selections.SectionID == id {
		np.Selections.SectionID = selectionAfterSectionRemoval(song.Sections, secIdx)
	}
	return np, nil
}

// ReplaceSong replaces the song with the same id as the given song,
// re-sorting its sections by start.
func (p Project) ReplaceSong(song Song) (Project, error) {
	idx := p.IndexOfSong(song.ID)
	if idx == -1 {
		return Project{}, ErrNotFound
	}
	np := clone.Clone(p)
	sortSections(song.Sections)
	np.Songs[idx] = song
	return np, nil
}

// ReplaceSection replaces the section with the same id as the given
// section, wherever it is found, re-sorting the owning song's sections.
func (p Project) ReplaceSection(section Section) (Project, error) {
	songIdx, secIdx := p.locateSection(section.ID)
	if songIdx == -1 {
		return Project{}, ErrNotFound
	}
	np := clone.Clone(p)
	song := &np.Songs[songIdx]
	song.Sections[secIdx] = section
	sortSections(song.Sections)
	return np, nil
}

// ReplaceSample replaces the sample with the same id as the given sample,
// wherever it is referenced by a song.
func (p Project) ReplaceSample(sample Sample) (Project, error) {
	for i, s := range p.Songs {
		if s.Sample != nil && s.Sample.ID == sample.ID {
			np := clone.Clone(p)
			np.Songs[i].Sample = &sample
			return np, nil
		}
	}
	return Project{}, ErrNotFound
}

// AddSampleToSong attaches (or replaces) the sample on the named song.
func (p Project) AddSampleToSong(sample Sample, songID ID) (Project, error) {
	idx := p.IndexOfSong(songID)
	if idx == -1 {
		return Project{}, ErrNotFound
	}
	np := clone.Clone(p)
	if sample.ID == InvalidID {
		sample.ID = np.nextID()
	}
	np.Songs[idx].Sample = &sample
	return np, nil
}

// SelectSongWithID selects the named song along with its first section. A
// missing id is a no-op: selection operations never fail, they simply
// leave the project unchanged.
func (p Project) SelectSongWithID(songID ID) Project {
	song, ok := p.SongByID(songID)
	if !ok || len(song.Sections) == 0 {
		return p
	}
	np := clone.Clone(p)
	np.Selections = Selections{SongID: song.ID, SectionID: song.Sections[0].ID}
	return np
}

// SelectSection selects the named section within the currently selected
// song. A section id that does not belong to the current song is a no-op.
func (p Project) SelectSection(sectionID ID) Project {
	song, ok := p.SelectedSong()
	if !ok {
		return p
	}
	if _, ok := song.SectionByID(sectionID); !ok {
		return p
	}
	np := clone.Clone(p)
	np.Selections.SectionID = sectionID
	return np
}

// SelectNextSong moves the song selection forward by one, clamped at the
// last song (no wraparound), and selects that song's first section.
func (p Project) SelectNextSong() Project {
	return p.shiftSongSelection(1)
}

// SelectPreviousSong moves the song selection back by one, clamped at the
// first song.
func (p Project) SelectPreviousSong() Project {
	return p.shiftSongSelection(-1)
}

func (p Project) shiftSongSelection(delta int) Project {
	idx := p.IndexOfSong(p.Selections.SongID)
	if idx == -1 {
		if len(p.Songs) == 0 {
			return p
		}
		idx = 0
	}
	idx = clampIndex(idx+delta, len(p.Songs))
	return p.SelectSongWithID(p.Songs[idx].ID)
}

// SelectNextSection moves the section selection forward by one within the
// current song, clamped at the last section.
func (p Project) SelectNextSection() Project {
	return p.shiftSectionSelection(1)
}

// SelectPreviousSection moves the section selection back by one within the
// current song, clamped at the first section (index 0 is a no-op, per the
// "selecting previous at index 0 leaves the sequence unchanged" rule).
func (p Project) SelectPreviousSection() Project {
	return p.shiftSectionSelection(-1)
}

func (p Project) shiftSectionSelection(delta int) Project {
	song, ok := p.SelectedSong()
	if !ok || len(song.Sections) == 0 {
		return p
	}
	idx := song.IndexOfSection(p.Selections.SectionID)
	if idx == -1 {
		idx = 0
	}
	idx = clampIndex(idx+delta, len(song.Sections))
	return p.SelectSection(song.Sections[idx].ID)
}

func clampIndex(idx, length int) int {
	if length == 0 {
		return 0
	}
	if idx < 0 {
		return 0
	}
	if idx >= length {
		return length - 1
	}
	return idx
}

// locateSection finds the song index and section index of the section
// with the given id, or (-1, -1) if not found.
func (p Project) locateSection(id ID) (int, int) {
	for si, s := range p.Songs {
		if idx := s.IndexOfSection(id); idx != -1 {
			return si, idx
		}
	}
	return -1, -1
}

// selectionAfterSongRemoval implements the "same-indexed sibling, else
// last valid predecessor, else first song's first section" fallback rule
// for the song list. songs is the list after removal; removedIdx is the
// index the removed song used to occupy.
func selectionAfterSongRemoval(songs []Song, removedIdx int) Selections {
	var song Song
	switch {
	case removedIdx < len(songs):
		song = songs[removedIdx]
	case removedIdx-1 >= 0 && removedIdx-1 < len(songs):
		song = songs[removedIdx-1]
	default:
		song = songs[0]
	}
	if len(song.Sections) == 0 {
		return Selections{SongID: song.ID}
	}
	return Selections{SongID: song.ID, SectionID: song.Sections[0].ID}
}

// selectionAfterSectionRemoval implements the same fallback rule for a
// song's section list.
func selectionAfterSectionRemoval(sections []Section, removedIdx int) ID {
	switch {
	case removedIdx < len(sections):
		return sections[removedIdx].ID
	case removedIdx-1 >= 0 && removedIdx-1 < len(sections):
		return sections[removedIdx-1].ID
	default:
		return sections[0].ID
	}
}
