package sequence

import (
	"github.com/rlowe/loopcore/project"
	"github.com/rlowe/loopcore/timeline"
)

// Build is the pure sequence builder: (project, song, entry section, start
// time) -> an ordered Sequence. It returns an empty Sequence if songID or
// fromSectionID is not found, or if the song has no sample.
//
// Points are computed from the reference start time plus (section.Start -
// entrySection.Start) in beats, never chained off the previous point's end
// time, to bound cumulative floating point error at roughly one ULP per
// conversion rather than accumulating it over a long sequence.
func Build(proj project.Project, songID, fromSectionID project.ID, startTime timeline.Timestamp) Sequence {
	song, ok := proj.SongByID(songID)
	if !ok || song.Sample == nil {
		return nil
	}
	entry, ok := song.SectionByID(fromSectionID)
	if !ok {
		return nil
	}

	bpm := song.Tempo
	refStart := entry.Start

	var out Sequence
	for _, s := range song.Sections {
		if s.Start < refStart {
			continue
		}

		beatLength := song.SectionLength(s.ID)
		pointStart := startTime.IncrementedByBeats(s.Start-refStart, bpm)
		duration := timeline.FromBeats(beatLength, bpm)
		position := timeline.FromBeats(s.Start, bpm)

		out = append(out, Point{
			StartTime:   pointStart,
			Duration:    duration,
			LoopEnabled: s.LoopEnabled,
			Data: PointData{
				SongID:           song.ID,
				SectionID:        s.ID,
				SampleID:         song.Sample.ID,
				PositionInSample: position,
				MetronomeEnabled: s.MetronomeEnabled,
				Tempo:            bpm,
			},
		})

		if s.LoopEnabled {
			break
		}
	}
	return out
}
