package episodes

import (
	"log/slog"
	"slices"

	"github.com/samber/lo"
)

// PatternResult is the re-count of one validated pattern.
type PatternResult struct {
	ID       int
	Episode  Episode
	Observed int
	// Methods are the distinct enclosing methods of the witnessing windows,
	// in stream order. Empty when no enclosing contexts were supplied.
	Methods []Event
}

// ValidationReport holds the results of a successful validation grouped by
// pattern size.
type ValidationReport struct {
	BySize map[int][]PatternResult
}

// Sizes returns the validated size classes in ascending order.
func (r ValidationReport) Sizes() []int {
	sizes := lo.Keys(r.BySize)
	slices.Sort(sizes)
	return sizes
}

// PatternValidator re-counts mined patterns on the windows they were mined
// from. It only checks that the event set of a pattern is contained in a
// window; the order relations inside the window are not verified.
type PatternValidator struct {
	Logger *slog.Logger
}

func (v PatternValidator) logger() *slog.Logger {
	if v.Logger == nil {
		return slog.Default()
	}
	return v.Logger
}

// Validate fails with a *ValidationError for the first pattern that occurs in
// fewer windows than its frequency claims. enclosing, when not nil, is aligned
// with the windows of index and names the method of every window; unknown
// entries are left out of the witnessing methods.
func (v PatternValidator) Validate(patterns EpisodesBySize, index *OccurrenceIndex, enclosing []Event) (ValidationReport, error) {
	log := v.logger()
	if enclosing != nil && len(enclosing) != index.Len() {
		log.Warn("windows and enclosing methods differ in size",
			"windows", index.Len(), "methods", len(enclosing))
	}

	report := ValidationReport{BySize: make(map[int][]PatternResult)}
	id := 0
	for _, size := range patterns.Sizes() {
		if size < 2 {
			continue
		}
		results := make([]PatternResult, 0, patterns[size].Len())
		for _, ep := range patterns[size].Items() {
			witnesses := index.Witnesses(ep.Events())
			if len(witnesses) < ep.frequency {
				log.Error("pattern under-supported",
					"episode", ep.String(), "frequency", ep.frequency, "observed", len(witnesses))
				return report, &ValidationError{Episode: ep, Frequency: ep.frequency, Observed: len(witnesses)}
			}
			results = append(results, PatternResult{
				ID:       id,
				Episode:  ep,
				Observed: len(witnesses),
				Methods:  witnessMethods(witnesses, enclosing),
			})
			id++
		}
		report.BySize[size] = results
		log.Info("processed patterns", "nodes", size, "patterns", len(results))
	}
	return report, nil
}

func witnessMethods(witnesses []int, enclosing []Event) []Event {
	if len(enclosing) == 0 {
		return nil
	}
	seen := make(map[Event]struct{})
	var out []Event
	for _, w := range witnesses {
		if w >= len(enclosing) {
			continue
		}
		m := enclosing[w]
		if m.IsUnknown() {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
