package sequence

import (
	"time"

	"github.com/rlowe/loopcore/project"
	"github.com/rlowe/loopcore/timeline"
)

// Sequence is an ordered, possibly empty list of Points. Adjacent points
// satisfy p[i].EndTime() <= p[i+1].StartTime, and if any point has
// LoopEnabled set it is the final point (looping is terminal until
// cancelled). Every method returns a new Sequence rather than mutating the
// receiver in place, matching the project package's value-return
// convention and avoiding hidden aliasing between a Sequencer's installed
// sequence and any copy a caller might be holding.
type Sequence []Point

// PointAtTime returns the point whose [StartTime, EndTime) window contains
// t. For the terminal looping point, t >= StartTime suffices since the
// point recurs indefinitely.
func (s Sequence) PointAtTime(t timeline.Timestamp) (Point, bool) {
	for i, p := range s {
		last := i == len(s)-1
		if p.LoopEnabled && last {
			if !t.Before(p.StartTime) {
				return p, true
			}
			continue
		}
		if !t.Before(p.StartTime) && t.Before(p.EndTime()) {
			return p, true
		}
	}
	return Point{}, false
}

// NextTransition returns the smallest StartTime of a point strictly later
// than after, or the end of the point containing after if there is no
// later point. For a looping point that is the end of the current loop
// pass, not an immediate cutover -- queueing while a loop plays waits for
// the loop to finish its current lap before handing off.
func (s Sequence) NextTransition(after timeline.Timestamp) timeline.Timestamp {
	var earliest timeline.Timestamp
	found := false
	for _, p := range s {
		if p.StartTime.After(after) {
			if !found || p.StartTime.Before(earliest) {
				earliest = p.StartTime
				found = true
			}
		}
	}
	if found {
		return earliest
	}

	p, ok := s.PointAtTime(after)
	if !ok {
		return after
	}
	return endOfCurrentPass(p, after)
}

// endOfCurrentPass returns the end of whichever loop iteration of p
// contains t (a single pass, for a non-looping point).
func endOfCurrentPass(p Point, t timeline.Timestamp) timeline.Timestamp {
	if p.Duration == 0 {
		return p.StartTime
	}
	elapsed := time.Duration(t.Sub(p.StartTime))
	passLen := time.Duration(p.Duration)
	intoPass := elapsed % passLen
	remaining := passLen - intoPass
	return t.Add(timeline.Timestamp(remaining))
}

// TruncateToTime keeps every point ending at or before t and drops the
// rest. If t falls inside an active pass of the terminal looping point,
// that point is kept but truncated to end exactly at t and its loop flag
// is cleared -- it can no longer be the sequence's last point once
// something is appended after it.
func (s Sequence) TruncateToTime(t timeline.Timestamp) Sequence {
	var out Sequence
	for i, p := range s {
		if !p.EndTime().After(t) {
			out = append(out, p)
			continue
		}

		last := i == len(s)-1
		if p.LoopEnabled && last && !t.Before(p.StartTime) {
			truncated := p
			truncated.Duration = t.Sub(p.StartTime)
			truncated.LoopEnabled = false
			out = append(out, truncated)
		}
		break
	}
	return out
}

// EnableLoopAtTime sets LoopEnabled on the point containing t and drops
// every point after it.
func (s Sequence) EnableLoopAtTime(t timeline.Timestamp) Sequence {
	for i, p := range s {
		last := i == len(s)-1
		contains := (!t.Before(p.StartTime) && t.Before(p.EndTime())) || (p.LoopEnabled && last && !t.Before(p.StartTime))
		if !contains {
			continue
		}
		out := append(Sequence{}, s[:i+1]...)
		out[i].LoopEnabled = true
		return out
	}
	return s
}

// CancelLoopAtTime converts the terminal looping point into a non-looping
// point ending at the close of its current pass, then appends whatever
// Build would produce starting at the next section in the song, at the
// close of that pass. It is a no-op if the sequence is not currently
// looping, or if t precedes the loop's start.
func (s Sequence) CancelLoopAtTime(t timeline.Timestamp, proj project.Project) Sequence {
	if len(s) == 0 {
		return s
	}
	idx := len(s) - 1
	p := s[idx]
	if !p.LoopEnabled || t.Before(p.StartTime) {
		return s
	}

	passEnd := endOfCurrentPass(p, t)

	out := append(Sequence{}, s[:idx]...)
	converted := p
	converted.LoopEnabled = false
	converted.Duration = passEnd.Sub(p.StartTime)
	out = append(out, converted)

	song, ok := proj.SongByID(p.Data.SongID)
	if !ok || song.Sample == nil {
		return out
	}
	secIdx := song.IndexOfSection(p.Data.SectionID)
	if secIdx == -1 || secIdx+1 >= len(song.Sections) {
		return out
	}

	suffix := Build(proj, song.ID, song.Sections[secIdx+1].ID, passEnd)
	return out.Append(suffix)
}

// Append concatenates s and other into a new Sequence. The caller
// guarantees the result still satisfies the time-ordering invariant.
func (s Sequence) Append(other Sequence) Sequence {
	out := make(Sequence, 0, len(s)+len(other))
	out = append(out, s...)
	out = append(out, other...)
	return out
}
