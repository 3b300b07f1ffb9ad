// Package engine wires the project, sequencer, metronome and sampler
// packages behind the controller-facing surface: one control loop
// selecting over commands, a 60 Hz tick and decode results, grounded on
// cmd/modplay/play.go's combination of a signal-handling goroutine, a
// keyboard-handling goroutine and a single render loop around one shared
// *AudioPlayer.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rlowe/loopcore/decode"
	"github.com/rlowe/loopcore/metronome"
	"github.com/rlowe/loopcore/project"
	"github.com/rlowe/loopcore/sampler"
	"github.com/rlowe/loopcore/sequencer"
	"github.com/rlowe/loopcore/timeline"
)

const tickRate = time.Second / 60

// SampleConversionError reports a failed decode, surfaced to the
// controller as a warning rather than aborting playback of the rest of
// the project.
type SampleConversionError struct {
	SampleID project.ID
	Err      error
}

func (e SampleConversionError) Error() string {
	return fmt.Sprintf("sample %d: %v", e.SampleID, e.Err)
}

type commandKind int

const (
	cmdProjectUpdated commandKind = iota
	cmdPlay
	cmdStop
	cmdEnterLoop
	cmdExitLoop
	cmdQueue
	cmdTogglePlay
	cmdToggleLoop
	cmdSampleConverted
)

type controlCommand struct {
	kind      commandKind
	project   project.Project
	songID    project.ID
	sectionID project.ID
	sampleID  project.ID
	pcm       decode.PCM
	err       error
}

// Engine is the controller-facing boundary. Every control method (Play,
// Stop, Queue, OnProjectUpdated and the rest) is non-blocking: it enqueues
// a command for the control loop and returns, so the caller's goroutine
// never blocks on the audio callback.
type Engine struct {
	seq     *sequencer.Sequencer
	metro   *metronome.Scheduler
	osc     *sampler.Oscillator
	adsr    *sampler.ADSR
	decoder decode.Decoder
	audio   sampler.Context

	// project is owned exclusively by the control loop goroutine. samplers
	// is written only by the control loop but read by Render from the
	// audio callback's own thread, so it alone gets a dedicated lock --
	// scoped to the map, never the whole engine, so a slow control
	// operation can never stall the audio callback.
	project    project.Project
	samplersMu sync.RWMutex
	samplers   map[project.ID]*sampler.RingSampler

	commands   chan controlCommand
	states     chan sequencer.PlaybackState
	progresses chan sequencer.Progress
	warnings   chan SampleConversionError

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an Engine that decodes samples with decoder and reads the
// audio clock from audio.
func New(decoder decode.Decoder, audio sampler.Context) *Engine {
	osc := &sampler.Oscillator{}
	adsr := &sampler.ADSR{
		Attack:  metronome.AttackTime,
		Decay:   metronome.DecayTime,
		Sustain: metronome.SustainLevel,
		Release: metronome.ReleaseTime,
	}
	seq := sequencer.New()

	return &Engine{
		seq:        seq,
		metro:      metronome.New(osc, adsr, seq),
		osc:        osc,
		adsr:       adsr,
		decoder:    decoder,
		audio:      audio,
		samplers:   make(map[project.ID]*sampler.RingSampler),
		commands:   make(chan controlCommand, 32),
		states:     make(chan sequencer.PlaybackState, 8),
		progresses: make(chan sequencer.Progress, 8),
		warnings:   make(chan SampleConversionError, 8),
	}
}

// States emits the playback state whenever it changes.
func (e *Engine) States() <-chan sequencer.PlaybackState { return e.states }

// Progresses emits playback progress whenever it changes (typically every
// tick while playing).
func (e *Engine) Progresses() <-chan sequencer.Progress { return e.progresses }

// Warnings emits sample decode failures as they occur.
func (e *Engine) Warnings() <-chan SampleConversionError { return e.warnings }

// Run starts the audio device and the control loop. It returns once the
// stream has started; the loop itself runs until ctx is cancelled or
// Close is called.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.audio.Start(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go e.loop(runCtx)
	return nil
}

// Close stops the control loop and waits for it to exit.
func (e *Engine) Close() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	var lastState sequencer.PlaybackState
	var lastProgress sequencer.Progress
	first := true

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.commands:
			e.handle(cmd)
		case <-ticker.C:
			e.audio.ProcessNotifications()
			now := e.audio.CurrentTime()
			e.seq.SetCurrentTime(now)
			e.metro.Tick(now)

			state := e.seq.GetPlaybackState()
			progress := e.seq.GetProgress()
			if first || state != lastState {
				e.publishState(state)
				lastState = state
			}
			if first || progress != lastProgress {
				e.publishProgress(progress)
				lastProgress = progress
			}
			first = false
		}
	}
}

func (e *Engine) publishState(s sequencer.PlaybackState) {
	select {
	case e.states <- s:
	default:
	}
}

func (e *Engine) publishProgress(p sequencer.Progress) {
	select {
	case e.progresses <- p:
	default:
	}
}

func (e *Engine) send(cmd controlCommand) {
	select {
	case e.commands <- cmd:
	default:
		// The command queue only backs up if the control loop is wedged;
		// dropping rather than blocking preserves "never blocks on the
		// audio callback" for the caller.
	}
}

// OnProjectUpdated adopts a new project snapshot: samples newly present
// are decoded off the control thread, samples that left the project have
// their sampler torn down.
func (e *Engine) OnProjectUpdated(proj project.Project) {
	e.send(controlCommand{kind: cmdProjectUpdated, project: proj})
}

// Play builds and installs a sequence from the currently selected song
// and section, starting at the audio clock's current time.
func (e *Engine) Play() { e.send(controlCommand{kind: cmdPlay}) }

// Stop empties the installed sequence and cancels every sampler.
func (e *Engine) Stop() { e.send(controlCommand{kind: cmdStop}) }

// EnterLoop makes the currently active point loop in place.
func (e *Engine) EnterLoop() { e.send(controlCommand{kind: cmdEnterLoop}) }

// ExitLoop cancels the active loop and resumes the song.
func (e *Engine) ExitLoop() { e.send(controlCommand{kind: cmdExitLoop}) }

// Queue schedules a transition to songID/sectionID at the next boundary.
func (e *Engine) Queue(songID, sectionID project.ID) {
	e.send(controlCommand{kind: cmdQueue, songID: songID, sectionID: sectionID})
}

// TogglePlay starts playback if stopped, stops it if playing.
func (e *Engine) TogglePlay() { e.send(controlCommand{kind: cmdTogglePlay}) }

// ToggleLoop enters the loop if not looping, exits it if looping.
func (e *Engine) ToggleLoop() { e.send(controlCommand{kind: cmdToggleLoop}) }

// OnSampleConverted delivers a finished (or failed) decode back to the
// control loop. Decode workers call this from their own goroutine.
func (e *Engine) OnSampleConverted(sampleID project.ID, pcm decode.PCM, err error) {
	e.send(controlCommand{kind: cmdSampleConverted, sampleID: sampleID, pcm: pcm, err: err})
}

func (e *Engine) handle(cmd controlCommand) {
	switch cmd.kind {
	case cmdProjectUpdated:
		e.onProjectUpdated(cmd.project)
	case cmdPlay:
		e.seq.Play(e.audio.CurrentTime(), e.project)
	case cmdStop:
		e.seq.Stop()
	case cmdEnterLoop:
		e.seq.EnterLoop(e.audio.CurrentTime())
	case cmdExitLoop:
		e.seq.ExitLoop(e.audio.CurrentTime())
	case cmdQueue:
		e.seq.Queue(e.audio.CurrentTime(), cmd.songID, cmd.sectionID)
	case cmdTogglePlay:
		if e.seq.GetPlaybackState().Playing == sequencer.Playing {
			e.seq.Stop()
		} else {
			e.seq.Play(e.audio.CurrentTime(), e.project)
		}
	case cmdToggleLoop:
		now := e.audio.CurrentTime()
		if e.seq.GetPlaybackState().Looping {
			e.seq.ExitLoop(now)
		} else {
			e.seq.EnterLoop(now)
		}
	case cmdSampleConverted:
		e.onSampleConverted(cmd.sampleID, cmd.pcm, cmd.err)
	}
}

func (e *Engine) onSampleConverted(sampleID project.ID, pcm decode.PCM, err error) {
	if err != nil {
		select {
		case e.warnings <- SampleConversionError{SampleID: sampleID, Err: err}:
		default:
		}
		return
	}

	rs := sampler.NewRingSampler(pcm)
	e.samplersMu.Lock()
	e.samplers[sampleID] = rs
	e.samplersMu.Unlock()
	e.seq.SetSampler(sampleID, rs)

	// The sequence builder needs SampleRate/SampleCount to compute beat
	// lengths, and those are only known once the decode finishes -- fill
	// them into the held snapshot and republish it so a subsequent Play
	// builds against accurate sample metadata.
	channels := pcm.ChannelCount
	if channels <= 0 {
		channels = 1
	}
	for i := range e.project.Songs {
		sample := e.project.Songs[i].Sample
		if sample == nil || sample.ID != sampleID {
			continue
		}
		sample.SampleRate = pcm.SampleRate
		sample.ChannelCount = channels
		sample.SampleCount = len(pcm.Samples) / channels
	}
	e.seq.UpdateProject(e.project)
}

// onProjectUpdated diffs the sample set against the previously held
// snapshot: samples that left the project are retired immediately;
// samples newly present are decoded by a worker goroutine, one per
// in-flight decode, off the control thread.
func (e *Engine) onProjectUpdated(proj project.Project) {
	old := e.project
	e.project = proj

	e.seq.UpdateProject(proj)

	oldSamples := sampleSet(old)
	newSamples := sampleSet(proj)

	for id := range oldSamples {
		if _, ok := newSamples[id]; !ok {
			e.samplersMu.Lock()
			delete(e.samplers, id)
			e.samplersMu.Unlock()
			e.seq.RemoveSampler(id)
		}
	}

	for id, sample := range newSamples {
		if _, ok := oldSamples[id]; ok {
			continue
		}
		sample := sample
		go e.decodeSample(sample)
	}
}

func (e *Engine) decodeSample(sample project.Sample) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pcm, err := e.decoder.Convert(ctx, sample.Path, e.audio.SampleRate())
	e.OnSampleConverted(sample.ID, pcm, err)
}

// Render mixes every live sampler's output into out. It is safe to call
// from the audio device's own callback thread.
func (e *Engine) Render(out []int16, now timeline.Timestamp) {
	for i := range out {
		out[i] = 0
	}

	scratch := make([]int16, len(out))
	e.samplersMu.RLock()
	defer e.samplersMu.RUnlock()
	for _, sp := range e.samplers {
		sp.Render(scratch, now)
		for i, v := range scratch {
			out[i] = clampAdd(out[i], v)
		}
	}
}

func clampAdd(a, b int16) int16 {
	sum := int32(a) + int32(b)
	switch {
	case sum > 32767:
		return 32767
	case sum < -32768:
		return -32768
	default:
		return int16(sum)
	}
}

func sampleSet(proj project.Project) map[project.ID]project.Sample {
	out := make(map[project.ID]project.Sample)
	for _, song := range proj.Songs {
		if song.Sample != nil {
			out[song.Sample.ID] = *song.Sample
		}
	}
	return out
}
