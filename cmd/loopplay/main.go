package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"
	"github.com/gordonklaus/portaudio"
	"github.com/rlowe/loopcore/decode"
	"github.com/rlowe/loopcore/engine"
	"github.com/rlowe/loopcore/project"
	"github.com/rlowe/loopcore/sequencer"
)

var (
	flagHz = flag.Int("hz", 44100, "output sample rate")
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("loopplay: ")
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("Missing project filename")
	}

	proj, err := loadProjectFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	if err := portaudio.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer portaudio.Terminate()

	audio := newPortaudioContext(*flagHz)
	eng := engine.New(decode.WAVDecoder{}, audio)
	audio.bind(eng)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Run(ctx); err != nil {
		log.Fatal(err)
	}
	defer eng.Close()
	defer audio.Stop()

	eng.OnProjectUpdated(proj)

	cli := newStatusLine(eng)

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)
	go func() {
		<-sigch
		cancel()
	}()

	fmt.Print(hideCursor)
	defer fmt.Print(showCursor)

	keyboardDone := make(chan struct{})
	go func() {
		defer close(keyboardDone)
		keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			switch {
			case key.Code == keys.CtrlC || key.Code == keys.Escape:
				cancel()
				return true, nil
			case key.Code == keys.Space:
				eng.TogglePlay()
			case len(key.Runes) > 0 && key.Runes[0] == 'l':
				eng.ToggleLoop()
			case len(key.Runes) > 0 && key.Runes[0] == 'q':
				cli.queueNextSong(proj)
			}
			return false, nil
		})
	}()

	cli.run(ctx)
	<-keyboardDone
}

// statusLine renders a single status line using the same color-coded
// column style as cmd/modplay's renderHeader/renderInstrumentStatus.
type statusLine struct {
	eng *engine.Engine

	songColor    func(string, ...interface{}) string
	sectionColor func(string, ...interface{}) string
	loopColor    func(string, ...interface{}) string
}

func newStatusLine(eng *engine.Engine) *statusLine {
	return &statusLine{
		eng:          eng,
		songColor:    color.New(color.FgCyan).SprintfFunc(),
		sectionColor: color.New(color.FgYellow).SprintfFunc(),
		loopColor:    color.New(color.FgGreen).SprintfFunc(),
	}
}

func (s *statusLine) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case state := <-s.eng.States():
			s.render(state)
		case w := <-s.eng.Warnings():
			fmt.Printf("\n%s\n", color.RedString("sample decode failed: %v", w))
		}
	}
}

func (s *statusLine) render(state sequencer.PlaybackState) {
	loop := ""
	if state.Looping {
		loop = s.loopColor("[loop]")
	}
	fmt.Printf("\r%s song %s section %s %s   ", state.Playing,
		s.songColor("%d", state.SongID), s.sectionColor("%d", state.SectionID), loop)
}

// queueNextSong advances to the next song in project order, wrapping
// around, mirroring the 'q' key's role described for this CLI.
func (s *statusLine) queueNextSong(proj project.Project) {
	if len(proj.Songs) == 0 {
		return
	}
	idx := proj.IndexOfSong(proj.Selections.SongID)
	next := (idx + 1) % len(proj.Songs)
	song := proj.Songs[next]
	if len(song.Sections) == 0 {
		return
	}
	s.eng.Queue(song.ID, song.Sections[0].ID)
}
