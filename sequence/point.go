// Package sequence implements the pure sequence builder and the Sequence
// value type it produces: an ordered, contiguous timeline of scheduled
// playback segments.
package sequence

import (
	"github.com/rlowe/loopcore/project"
	"github.com/rlowe/loopcore/timeline"
)

// PointData names the song, section and sample a Point plays, plus where
// in the sample it starts.
type PointData struct {
	SongID           project.ID
	SectionID        project.ID
	SampleID         project.ID
	PositionInSample timeline.Timestamp
	MetronomeEnabled bool
	Tempo            timeline.Tempo
}

// Point is one scheduled playback segment: an immutable plan atom with an
// absolute start time and duration.
type Point struct {
	StartTime   timeline.Timestamp
	Duration    timeline.Timestamp
	LoopEnabled bool
	Data        PointData
}

// EndTime returns StartTime + Duration.
func (p Point) EndTime() timeline.Timestamp {
	return p.StartTime.Add(p.Duration)
}
