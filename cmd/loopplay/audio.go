package main

import (
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/rlowe/loopcore/engine"
	"github.com/rlowe/loopcore/timeline"
)

// portaudioContext is the sampler.Context backing this CLI: a PortAudio
// stereo stream whose callback renders through the engine and advances a
// sample-accurate clock, grounded on cmd/modplay/play.go's
// setupAudioStream/streamCallback pair.
type portaudioContext struct {
	eng        *engine.Engine
	sampleRate int
	stream     *portaudio.Stream
	frames     int64 // atomic
}

func newPortaudioContext(sampleRate int) *portaudioContext {
	return &portaudioContext{sampleRate: sampleRate}
}

// bind lets main wire the engine in after both are constructed --
// engine.New needs a Context and the Context's callback needs the Engine,
// so one side has to be filled in after the fact.
func (p *portaudioContext) bind(eng *engine.Engine) { p.eng = eng }

func (p *portaudioContext) CurrentTime() timeline.Timestamp {
	return timeline.FromSamples(atomic.LoadInt64(&p.frames), p.sampleRate)
}

func (p *portaudioContext) SampleRate() int { return p.sampleRate }

// ProcessNotifications is a no-op for PortAudio: unlike APIs that need an
// explicit event pump (e.g. PortMidi), the callback fires on its own
// thread with no host-side polling required.
func (p *portaudioContext) ProcessNotifications() {}

func (p *portaudioContext) Start() error {
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(p.sampleRate), portaudio.FramesPerBufferUnspecified, p.callback)
	if err != nil {
		return err
	}
	p.stream = stream
	return stream.Start()
}

func (p *portaudioContext) Stop() {
	if p.stream != nil {
		p.stream.Stop()
		p.stream.Close()
	}
}

func (p *portaudioContext) callback(out []int16) {
	now := p.CurrentTime()
	if p.eng != nil {
		p.eng.Render(out, now)
	} else {
		for i := range out {
			out[i] = 0
		}
	}
	atomic.AddInt64(&p.frames, int64(len(out)/2))
}
