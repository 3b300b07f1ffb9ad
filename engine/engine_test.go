package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rlowe/loopcore/decode"
	"github.com/rlowe/loopcore/project"
	"github.com/rlowe/loopcore/sequencer"
	"github.com/rlowe/loopcore/timeline"
)

// fakeAudioContext is a manually-advanced audio clock standing in for a
// real device stream.
type fakeAudioContext struct {
	mu    sync.Mutex
	now   timeline.Timestamp
	rate  int
	ticks int
}

func (f *fakeAudioContext) CurrentTime() timeline.Timestamp {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}
func (f *fakeAudioContext) SampleRate() int { return f.rate }
func (f *fakeAudioContext) ProcessNotifications() {
	f.mu.Lock()
	f.ticks++
	f.mu.Unlock()
}
func (f *fakeAudioContext) Start() error { return nil }

func (f *fakeAudioContext) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(timeline.Timestamp(d))
	f.mu.Unlock()
}

type fakeDecoder struct {
	pcm decode.PCM
	err error
}

func (d fakeDecoder) Convert(ctx context.Context, path string, targetSampleRate int) (decode.PCM, error) {
	return d.pcm, d.err
}

func testProject(sampleID project.ID) project.Project {
	sample := project.Sample{ID: sampleID, Path: "sample.wav", SampleRate: 44100, SampleCount: 44100 * 8}
	song := project.Song{
		ID:     1,
		Tempo:  timeline.NewTempo(120),
		Sample: &sample,
		Sections: []project.Section{
			{ID: 1, Start: 0},
			{ID: 2, Start: 8},
		},
	}
	return project.Project{
		Songs:      []project.Song{song},
		Selections: project.Selections{SongID: 1, SectionID: 1},
	}
}

func waitForState(t *testing.T, e *Engine, want sequencer.PlayState, timeout time.Duration) sequencer.PlaybackState {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case s := <-e.States():
			if s.Playing == want {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", want)
		}
	}
}

func TestEngineDecodesSampleAndPlays(t *testing.T) {
	audio := &fakeAudioContext{rate: 44100}
	dec := fakeDecoder{pcm: decode.PCM{SampleRate: 44100, ChannelCount: 1, Samples: make([]int16, 44100*8)}}
	e := New(dec, audio)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer e.Close()

	proj := testProject(900)
	e.OnProjectUpdated(proj)

	// Give the decode goroutine + control loop a moment to process the
	// project update and the resulting OnSampleConverted command.
	time.Sleep(50 * time.Millisecond)

	e.Play()
	waitForState(t, e, sequencer.Playing, time.Second)
}

func TestEngineStopClearsPlaybackState(t *testing.T) {
	audio := &fakeAudioContext{rate: 44100}
	dec := fakeDecoder{pcm: decode.PCM{SampleRate: 44100, ChannelCount: 1, Samples: make([]int16, 44100*8)}}
	e := New(dec, audio)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer e.Close()

	e.OnProjectUpdated(testProject(900))
	time.Sleep(50 * time.Millisecond)
	e.Play()
	waitForState(t, e, sequencer.Playing, time.Second)

	e.Stop()
	waitForState(t, e, sequencer.Stopped, time.Second)
}

func TestEngineSurfacesDecodeFailureAsWarning(t *testing.T) {
	audio := &fakeAudioContext{rate: 44100}
	dec := fakeDecoder{err: decode.ErrDecodeFailed}
	e := New(dec, audio)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer e.Close()

	e.OnProjectUpdated(testProject(900))

	select {
	case w := <-e.Warnings():
		if w.SampleID != 900 {
			t.Errorf("warning sample id = %v, want 900", w.SampleID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for decode-failure warning")
	}
}
