package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rlowe/loopcore/project"
	"github.com/rlowe/loopcore/timeline"
)

// sectionFile is the on-disk shape of one project.Section.
type sectionFile struct {
	ID        uint64  `json:"id"`
	Name      string  `json:"name"`
	Start     float64 `json:"start"`
	Loop      bool    `json:"loop"`
	Metronome bool    `json:"metronome"`
}

// songFile is the on-disk shape of one project.Song: a tempo, one backing
// WAV sample, and the sections carved out of it.
type songFile struct {
	ID         uint64        `json:"id"`
	Name       string        `json:"name"`
	Tempo      float64       `json:"tempo"`
	SamplePath string        `json:"sample_path"`
	Sections   []sectionFile `json:"sections"`
}

// projectFile is the on-disk shape loaded by cmd/loopplay: a project
// description referencing one WAV file per song, resolved relative to
// the project file's own directory.
type projectFile struct {
	Name            string     `json:"name"`
	Songs           []songFile `json:"songs"`
	SelectedSong    uint64     `json:"selected_song"`
	SelectedSection uint64     `json:"selected_section"`
}

// loadProjectFile reads and validates a project description from path.
func loadProjectFile(path string) (project.Project, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return project.Project{}, fmt.Errorf("reading project file: %w", err)
	}

	var pf projectFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return project.Project{}, fmt.Errorf("parsing project file: %w", err)
	}

	proj := project.Project{
		Info: project.Info{ID: project.ID(1), Name: pf.Name},
		Selections: project.Selections{
			SongID:    project.ID(pf.SelectedSong),
			SectionID: project.ID(pf.SelectedSection),
		},
	}

	for _, sf := range pf.Songs {
		tempo := timeline.NewTempo(sf.Tempo)
		song := project.Song{
			ID:    project.ID(sf.ID),
			Name:  sf.Name,
			Tempo: tempo,
			Sample: &project.Sample{
				ID:    project.ID(sf.ID), // one sample per song: reuse the song id
				Name:  sf.Name,
				Path:  resolveSamplePath(path, sf.SamplePath),
				Tempo: tempo,
			},
		}
		for _, secf := range sf.Sections {
			song.Sections = append(song.Sections, project.Section{
				ID:               project.ID(secf.ID),
				Name:             secf.Name,
				Start:            secf.Start,
				LoopEnabled:      secf.Loop,
				MetronomeEnabled: secf.Metronome,
			})
		}
		proj.Songs = append(proj.Songs, song)
	}

	if err := proj.IsValid(); err != nil {
		return project.Project{}, fmt.Errorf("project file %s: %w", path, err)
	}
	return proj, nil
}

func resolveSamplePath(projectPath, samplePath string) string {
	if samplePath == "" {
		return samplePath
	}
	if samplePath[0] == '/' {
		return samplePath
	}
	dir := "."
	for i := len(projectPath) - 1; i >= 0; i-- {
		if projectPath[i] == '/' {
			dir = projectPath[:i]
			break
		}
	}
	return dir + "/" + samplePath
}
