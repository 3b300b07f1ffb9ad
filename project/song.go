package project

import (
	"sort"

	"github.com/rlowe/loopcore/timeline"
)

// newSectionGapBeats is the beat offset used when a new section is
// appended after the song's current last section.
const newSectionGapBeats = 16.0

// Song references one audio sample plus an ordered list of sections.
// Sections are kept sorted by ascending Start.
type Song struct {
	ID       ID
	Name     string
	Tempo    timeline.Tempo
	Sample   *Sample
	Sections []Section
}

// Valid reports whether the song has an id, at least one section, and its
// sections are sorted by ascending start.
func (s Song) Valid() bool {
	if s.ID == InvalidID || len(s.Sections) == 0 {
		return false
	}
	for i := 1; i < len(s.Sections); i++ {
		if s.Sections[i].Start < s.Sections[i-1].Start {
			return false
		}
	}
	return true
}

// SectionByID returns the section with the given id and whether it was
// found.
func (s Song) SectionByID(id ID) (Section, bool) {
	for _, sec := range s.Sections {
		if sec.ID == id {
			return sec, true
		}
	}
	return Section{}, false
}

// IndexOfSection returns the index of the section with the given id, or -1
// if it does not belong to this song.
func (s Song) IndexOfSection(id ID) int {
	for i, sec := range s.Sections {
		if sec.ID == id {
			return i
		}
	}
	return -1
}

// SectionLength returns the beat span from the section's start until the
// next section's start, or until the sample's beat length for the last
// section. It returns 0 if the section's start is beyond the sample, or if
// the song has no sample.
func (s Song) SectionLength(id ID) float64 {
	idx := s.IndexOfSection(id)
	if idx == -1 || s.Sample == nil {
		return 0
	}

	sec := s.Sections[idx]
	var end float64
	if idx+1 < len(s.Sections) {
		end = s.Sections[idx+1].Start
	} else {
		end = s.Sample.BeatLength()
	}

	length := end - sec.Start
	if length < 0 {
		return 0
	}
	return length
}

// sortSections sorts sections in place by ascending Start. The sort is
// stable: sections with equal starts keep their existing relative order.
func sortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Start < sections[j].Start
	})
}
