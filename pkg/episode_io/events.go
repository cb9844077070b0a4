package episode_io

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jtomasevic/episodes/pkg/episodes"
)

// ReadEvents decodes a JSON array of events: the event mapping (index = id)
// or the enclosing methods of a stream.
func ReadEvents(r io.Reader) ([]episodes.Event, error) {
	var out []episodes.Event
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: events: %v", episodes.ErrMalformedInput, err)
	}
	return out, nil
}

func WriteEvents(w io.Writer, events []episodes.Event) error {
	if events == nil {
		events = []episodes.Event{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(events)
}

// patternsDoc is the JSON form of postprocessed patterns.
type patternsDoc struct {
	RunID    string                     `json:"run_id,omitempty"`
	Patterns map[int][]episodes.Episode `json:"patterns"`
}

// WritePatterns writes m as JSON keyed by size.
func WritePatterns(w io.Writer, runID string, m episodes.EpisodesBySize) error {
	doc := patternsDoc{RunID: runID, Patterns: make(map[int][]episodes.Episode, len(m))}
	for size, set := range m {
		items := set.Items()
		if items == nil {
			items = []episodes.Episode{}
		}
		doc.Patterns[size] = items
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ReadPatterns is the inverse of WritePatterns.
func ReadPatterns(r io.Reader) (string, episodes.EpisodesBySize, error) {
	var doc patternsDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return "", nil, fmt.Errorf("%w: patterns: %v", episodes.ErrMalformedInput, err)
	}
	out := make(episodes.EpisodesBySize, len(doc.Patterns))
	for size, items := range doc.Patterns {
		out[size] = episodes.NewEpisodeSet(items...)
	}
	return doc.RunID, out, nil
}
