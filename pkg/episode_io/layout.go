package episode_io

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jtomasevic/episodes/pkg/episodes"
)

// EpisodeKind selects which mined episode file of a fold is read.
type EpisodeKind string

const (
	Sequential EpisodeKind = "sequential"
	Parallel   EpisodeKind = "parallel"
	Mix        EpisodeKind = "mix"
)

func ParseEpisodeKind(s string) (EpisodeKind, error) {
	switch k := EpisodeKind(strings.ToLower(strings.TrimSpace(s))); k {
	case Sequential, Parallel, Mix:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown episode kind %q", episodes.ErrPrecondition, s)
}

func (k EpisodeKind) fileSuffix() string {
	switch k {
	case Sequential:
		return "Seq"
	case Parallel:
		return "Parallel"
	default:
		return "Mix"
	}
}

// Layout locates the files of a fold below the events directory:
//
//	<events>/<Training|Validation>Data/fold<N>/{stream,mapping,methods}.txt
//	<events>/TrainingData/fold<N>/episodes<Seq|Parallel|Mix>.txt
type Layout struct {
	EventsDir string
}

func (l Layout) foldDir(kind string, fold int) string {
	return filepath.Join(l.EventsDir, kind+"Data", fmt.Sprintf("fold%d", fold))
}

func (l Layout) StreamPath(fold int) string {
	return filepath.Join(l.foldDir("Training", fold), "stream.txt")
}

func (l Layout) MappingPath(fold int) string {
	return filepath.Join(l.foldDir("Training", fold), "mapping.txt")
}

func (l Layout) MethodsPath(fold int) string {
	return filepath.Join(l.foldDir("Training", fold), "methods.txt")
}

func (l Layout) EpisodesPath(fold int, kind EpisodeKind) string {
	return filepath.Join(l.foldDir("Training", fold), "episodes"+kind.fileSuffix()+".txt")
}

func (l Layout) ValidationStreamPath(fold int) string {
	return filepath.Join(l.foldDir("Validation", fold), "stream.txt")
}

// ReadStreamFile opens and parses a stream file.
func ReadStreamFile(path string) ([]episodes.StreamEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	events, err := ReadStream(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

// ReadEpisodesFile opens and parses a raw episode file.
func ReadEpisodesFile(path string) (episodes.EpisodesBySize, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ReadEpisodes(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReadEventsFile opens and decodes a mapping or methods file. A missing file
// yields (nil, nil) so optional inputs can be skipped.
func ReadEventsFile(path string) ([]episodes.Event, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	events, err := ReadEvents(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

// WriteEventStream writes the stream, mapping and methods files of an encoded
// stream into dir.
func WriteEventStream(dir string, s *episodes.EventStream) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "stream.txt"), []byte(s.Stream()), 0o644); err != nil {
		return err
	}
	for name, events := range map[string][]episodes.Event{
		"mapping.txt": s.Mapping(),
		"methods.txt": s.EnclosingMethods(),
	} {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if err := WriteEvents(f, events); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
