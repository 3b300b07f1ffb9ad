package sequencer

import (
	"testing"

	"github.com/rlowe/loopcore/project"
	"github.com/rlowe/loopcore/timeline"
)

// recordingSampler is the hand-written fake used across this package's
// tests: no mocking framework, just a struct that remembers what was
// called.
type recordingSampler struct {
	starts    []timeline.Timestamp
	stops     []timeline.Timestamp
	loops     []timeline.Timestamp
	cancelled int
}

func (r *recordingSampler) StartFromPositionAtTime(at, position timeline.Timestamp) {
	r.starts = append(r.starts, at)
}
func (r *recordingSampler) StopAtTime(at timeline.Timestamp) { r.stops = append(r.stops, at) }
func (r *recordingSampler) EnableLoopAtTime(at, loopStart, loopEnd timeline.Timestamp) {
	r.loops = append(r.loops, at)
}
func (r *recordingSampler) CancelAll() { r.cancelled++ }

func threeSectionProject(sampleID project.ID, tempo float64) project.Project {
	sample := project.Sample{ID: sampleID, Tempo: timeline.NewTempo(tempo), SampleRate: 44100, SampleCount: 44100 * 100}
	song := project.Song{
		ID:     1,
		Name:   "song",
		Tempo:  timeline.NewTempo(tempo),
		Sample: &sample,
		Sections: []project.Section{
			{ID: 1, Start: 0},
			{ID: 2, Start: 4},
			{ID: 3, Start: 8},
		},
	}
	return project.Project{
		Info:       project.Info{ID: 1, Name: "p"},
		Songs:      []project.Song{song},
		Selections: project.Selections{SongID: 1, SectionID: 1},
	}
}

func newTestSequencer(proj project.Project, sampleID project.ID) (*Sequencer, *recordingSampler) {
	seq := New()
	fake := &recordingSampler{}
	seq.SetSampler(sampleID, fake)
	return seq, fake
}

func TestPlayNoOpWithoutSelection(t *testing.T) {
	proj := threeSectionProject(900, 120)
	proj.Selections = project.Selections{}
	seq, fake := newTestSequencer(proj, 900)

	seq.Play(timeline.Zero, proj)

	if seq.GetPlaybackState().Playing != Stopped {
		t.Errorf("expected Stopped with no selection")
	}
	if len(fake.starts) != 0 {
		t.Errorf("expected no scheduled starts")
	}
}

func TestPlayInstallsSequenceAndReportsPlaying(t *testing.T) {
	proj := threeSectionProject(900, 120)
	seq, fake := newTestSequencer(proj, 900)

	seq.Play(timeline.Zero, proj)
	seq.SetCurrentTime(timeline.FromSeconds(1))

	state := seq.GetPlaybackState()
	if state.Playing != Playing || state.SongID != 1 || state.SectionID != 1 {
		t.Errorf("state = %+v, want Playing song 1 section 1", state)
	}
	if len(fake.starts) == 0 {
		t.Errorf("expected at least one scheduled start")
	}
}

// TestQueueDuringPlaybackTruncatesAtNextBoundary verifies that queuing
// mid-playback truncates the current point's remainder and appends the
// new sequence at the next section boundary.
func TestQueueDuringPlaybackTruncatesAtNextBoundary(t *testing.T) {
	proj := threeSectionProject(900, 120)
	seq, _ := newTestSequencer(proj, 900)
	seq.Play(timeline.Zero, proj)

	a1Start := seq.current[1].StartTime
	currentTime := seq.current[0].StartTime.IncrementedByBeats(1, timeline.NewTempo(120))
	seq.SetCurrentTime(currentTime)

	seq.Queue(currentTime, 1, 3)

	if len(seq.current) < 2 {
		t.Fatalf("expected at least 2 points after queueing, got %d", len(seq.current))
	}
	if seq.current[0].EndTime() != a1Start {
		t.Errorf("truncated prefix should end at the original next point's start (%v), got %v", a1Start, seq.current[0].EndTime())
	}
	if seq.current[1].StartTime != a1Start {
		t.Errorf("queued suffix should start at %v, got %v", a1Start, seq.current[1].StartTime)
	}

	state := seq.GetPlaybackState()
	if state.QueuedSongID != 1 || state.QueuedSectionID != 3 {
		t.Errorf("expected queued ids (1,3), got (%v,%v)", state.QueuedSongID, state.QueuedSectionID)
	}

	seq.SetCurrentTime(a1Start)
	state = seq.GetPlaybackState()
	if state.QueuedSongID != project.InvalidID || state.QueuedSectionID != project.InvalidID {
		t.Errorf("queued ids should clear once current_time lands in the queued point")
	}
}

// TestStopDuringQueuedTransitionClearsEverything verifies that stopping
// before a queued boundary arrives clears the queue and cancels every
// sampler.
func TestStopDuringQueuedTransitionClearsEverything(t *testing.T) {
	proj := threeSectionProject(900, 120)
	seq, fake := newTestSequencer(proj, 900)
	seq.Play(timeline.Zero, proj)
	seq.Queue(timeline.FromSeconds(1), 1, 3)

	cancelledBefore := fake.cancelled
	seq.Stop()

	if len(seq.current) != 0 {
		t.Errorf("expected empty sequence after stop, got %d points", len(seq.current))
	}
	state := seq.GetPlaybackState()
	if state.Playing != Stopped {
		t.Errorf("expected Stopped, got %v", state.Playing)
	}
	if state.QueuedSongID != project.InvalidID || state.QueuedSectionID != project.InvalidID {
		t.Errorf("expected queued ids cleared on stop")
	}
	if fake.cancelled <= cancelledBefore {
		t.Errorf("expected stop to issue cancel_all to every sampler")
	}
}

func TestInstallIssuesCancelAllExactlyOnceBeforeScheduling(t *testing.T) {
	proj := threeSectionProject(900, 120)
	seq, fake := newTestSequencer(proj, 900)

	seq.Play(timeline.Zero, proj)
	if fake.cancelled != 1 {
		t.Errorf("expected exactly one cancel_all per install, got %d", fake.cancelled)
	}
}

func TestInstallStopsAfterTerminalLoopPoint(t *testing.T) {
	sample := project.Sample{ID: 900, SampleRate: 44100, SampleCount: 44100 * 100}
	song := project.Song{
		ID:     1,
		Tempo:  timeline.NewTempo(120),
		Sample: &sample,
		Sections: []project.Section{
			{ID: 1, Start: 0},
			{ID: 2, Start: 4, LoopEnabled: true},
			{ID: 3, Start: 8},
		},
	}
	proj := project.Project{Songs: []project.Song{song}, Selections: project.Selections{SongID: 1, SectionID: 1}}
	seq, fake := newTestSequencer(proj, 900)

	seq.Play(timeline.Zero, proj)

	if len(fake.loops) != 1 {
		t.Fatalf("expected exactly one loop schedule, got %d", len(fake.loops))
	}
	// Exactly one stop (for the first, non-looping point); the loop point
	// itself is never stopped, it is the last scheduled event.
	if len(fake.stops) != 1 {
		t.Errorf("expected exactly one stop event scheduled before the loop, got %d", len(fake.stops))
	}
}

func TestEnterExitLoopViaSequencer(t *testing.T) {
	proj := threeSectionProject(900, 120)
	seq, _ := newTestSequencer(proj, 900)
	seq.Play(timeline.Zero, proj)

	t0 := timeline.FromSeconds(1)
	seq.EnterLoop(t0)
	if !seq.current[len(seq.current)-1].LoopEnabled {
		t.Fatalf("expected terminal point to loop after EnterLoop")
	}

	seq.SetCurrentTime(t0)
	seq.ExitLoop(t0)
	if seq.current[len(seq.current)-1].LoopEnabled {
		t.Errorf("expected terminal point to stop looping after ExitLoop")
	}
}

func TestGetProgressZeroWhenStopped(t *testing.T) {
	seq := New()
	p := seq.GetProgress()
	if p.SongProgress != 0 || p.SectionProgress != 0 || p.SectionBeat != 0 {
		t.Errorf("expected zero progress when stopped, got %+v", p)
	}
}

func TestGetProgressMidSection(t *testing.T) {
	proj := threeSectionProject(900, 120)
	seq, _ := newTestSequencer(proj, 900)
	seq.Play(timeline.Zero, proj)

	// Section 0 is 4 beats at 120bpm = 2s long; 1 beat in = 0.5s.
	seq.SetCurrentTime(timeline.FromSeconds(0.5))
	p := seq.GetProgress()
	if p.SectionBeat < 0.9 || p.SectionBeat > 1.1 {
		t.Errorf("expected ~1 beat into section, got %v", p.SectionBeat)
	}
	if p.SectionProgress <= 0 || p.SectionProgress >= 1 {
		t.Errorf("expected section progress strictly between 0 and 1, got %v", p.SectionProgress)
	}
}
