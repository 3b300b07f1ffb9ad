// Package sequencer reconciles control operations (play/stop/queue/loop)
// against the audio clock, owns the currently installed Sequence, and
// drives the samplers by pre-scheduling their start/stop/loop events.
package sequencer

import (
	"math"
	"time"

	"github.com/rlowe/loopcore/project"
	"github.com/rlowe/loopcore/sampler"
	"github.com/rlowe/loopcore/sequence"
	"github.com/rlowe/loopcore/timeline"

	"sync"
)

// stopBias guarantees a point's stop event is processed before the next
// point's start event when the two share a boundary (end_time ==
// next.start_time).
const stopBias = 1 * time.Millisecond

// Sequencer takes mu for the duration of every public method, so it is
// safe to call from several goroutines — the Go rendering of "cooperative
// on a single control task" from a system with one message loop. The
// owning engine calls it from its one control loop, which multiplexes the
// tick timer and the control-command channel (decode results included).
type Sequencer struct {
	mu sync.Mutex

	current sequence.Sequence
	project project.Project

	queuedSongID    project.ID
	queuedSectionID project.ID

	currentTime timeline.Timestamp

	samplers map[project.ID]sampler.Sampler
}

// New returns an empty, stopped Sequencer.
func New() *Sequencer {
	return &Sequencer{
		samplers: make(map[project.ID]sampler.Sampler),
	}
}

// SetSampler registers (or replaces) the sampler backing sampleID. The
// owning engine calls this when a sample enters the project.
func (s *Sequencer) SetSampler(sampleID project.ID, sp sampler.Sampler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samplers[sampleID] = sp
}

// RemoveSampler drops the sampler for sampleID. The owning engine calls
// this when a sample leaves the project.
func (s *Sequencer) RemoveSampler(sampleID project.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.samplers, sampleID)
}

// SetCurrentTime records the latest audio-clock value. If the point now
// containing it matches a queued selection, that selection stops being
// "queued" — it has arrived.
func (s *Sequencer) SetCurrentTime(t timeline.Timestamp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTime = t

	if s.queuedSongID == project.InvalidID {
		return
	}
	if p, ok := s.current.PointAtTime(t); ok {
		if p.Data.SongID == s.queuedSongID && p.Data.SectionID == s.queuedSectionID {
			s.queuedSongID = project.InvalidID
			s.queuedSectionID = project.InvalidID
		}
	}
}

// UpdateProject adopts a new project snapshot without touching the
// installed sequence. The engine calls this for on_project_updated: a
// sample leaving the project is handled by removing its sampler, not by
// rebuilding or stopping playback, so a point still scheduled against a
// now-missing sampler simply renders silence until the sequence ends or
// the controller issues Stop.
func (s *Sequencer) UpdateProject(proj project.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = proj
}

// Play replaces the held project snapshot and, if a song and section are
// selected, builds and installs a sequence starting at startTime. With no
// selection this is a no-op beyond adopting the new snapshot.
func (s *Sequencer) Play(startTime timeline.Timestamp, proj project.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = proj

	song, ok := proj.SelectedSong()
	if !ok {
		return
	}
	section, ok := proj.SelectedSection()
	if !ok {
		return
	}

	seq := sequence.Build(proj, song.ID, section.ID, startTime)
	s.install(seq)
}

// Stop replaces the sequence with an empty one and clears queued ids,
// cancelling every in-flight event on every sampler.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queuedSongID = project.InvalidID
	s.queuedSectionID = project.InvalidID
	s.install(nil)
}

// EnterLoop makes the point containing t loop in place, idempotent if it
// already does.
func (s *Sequencer) EnterLoop(t timeline.Timestamp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.install(s.current.EnableLoopAtTime(t))
}

// ExitLoop cancels the terminal loop and resumes the song from the next
// section, a no-op if nothing is looping.
func (s *Sequencer) ExitLoop(t timeline.Timestamp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.install(s.current.CancelLoopAtTime(t, s.project))
}

// Queue schedules a transition to songID/sectionID at the next boundary
// after afterTime, leaving everything up to that boundary untouched.
func (s *Sequencer) Queue(afterTime timeline.Timestamp, songID, sectionID project.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	boundary := s.current.NextTransition(afterTime)
	prefix := s.current.TruncateToTime(boundary)
	suffix := sequence.Build(s.project, songID, sectionID, boundary)
	s.install(prefix.Append(suffix))

	s.queuedSongID = songID
	s.queuedSectionID = sectionID
}

// install is the only place that touches the samplers directly: it
// cancels every pending event on every sampler, then schedules the new
// sequence's events in order, stopping after the first terminal loop
// point.
func (s *Sequencer) install(newSeq sequence.Sequence) {
	for _, sp := range s.samplers {
		sp.CancelAll()
	}

	for _, p := range newSeq {
		if p.EndTime().Before(s.currentTime) {
			continue
		}

		sp, ok := s.samplers[p.Data.SampleID]
		if !ok {
			continue
		}

		sp.StartFromPositionAtTime(p.StartTime, p.Data.PositionInSample)
		if p.LoopEnabled {
			loopStart := p.Data.PositionInSample
			loopEnd := loopStart.Add(p.Duration)
			sp.EnableLoopAtTime(p.StartTime, loopStart, loopEnd)
			break
		}
		sp.StopAtTime(p.EndTime().Sub(timeline.Timestamp(stopBias)))
	}

	s.current = newSeq
}

// GetPlaybackState reports whether a point currently contains
// currentTime and, if so, its identity and loop state.
func (s *Sequencer) GetPlaybackState() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := PlaybackState{
		QueuedSongID:    s.queuedSongID,
		QueuedSectionID: s.queuedSectionID,
	}

	p, ok := s.current.PointAtTime(s.currentTime)
	if !ok {
		state.Playing = Stopped
		return state
	}

	state.Playing = Playing
	state.SongID = p.Data.SongID
	state.SectionID = p.Data.SectionID
	state.Looping = p.LoopEnabled
	return state
}

// GetProgress reports fractional progress through the current section
// and the full sample, plus the beat offset into the current section.
func (s *Sequencer) GetProgress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.current.PointAtTime(s.currentTime)
	if !ok {
		return Progress{}
	}

	secondsIntoPoint := s.currentTime.Sub(p.StartTime).AsSeconds()
	if p.LoopEnabled {
		if passLength := p.Duration.AsSeconds(); passLength > 0 {
			secondsIntoPoint = math.Mod(secondsIntoPoint, passLength)
		}
	}

	beatsIntoSection := timeline.FromSeconds(secondsIntoPoint).AsBeats(p.Data.Tempo)

	var sectionProgress, songProgress float64
	if song, ok := s.project.SongByID(p.Data.SongID); ok {
		if beatLen := song.SectionLength(p.Data.SectionID); beatLen > 0 {
			sectionProgress = beatsIntoSection / beatLen
		}
		if song.Sample != nil && song.Sample.SampleRate > 0 {
			sampleDuration := float64(song.Sample.SampleCount) / float64(song.Sample.SampleRate)
			if sampleDuration > 0 {
				songProgress = (p.Data.PositionInSample.AsSeconds() + secondsIntoPoint) / sampleDuration
			}
		}
	}

	return Progress{
		SongProgress:    songProgress,
		SectionProgress: sectionProgress,
		SectionBeat:     beatsIntoSection,
	}
}

// SequencePointAtTime delegates to the installed sequence; it implements
// metronome.PointSource.
func (s *Sequencer) SequencePointAtTime(t timeline.Timestamp) (sequence.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.PointAtTime(t)
}
