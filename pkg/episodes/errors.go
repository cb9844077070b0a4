package episodes

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput marks unparsable stream lines, facts or episode records.
	ErrMalformedInput = errors.New("malformed input")

	// ErrPrecondition marks API calls whose arguments violate a documented precondition.
	ErrPrecondition = errors.New("precondition violated")

	// ErrInvalidEpisode marks an episode whose facts break the episode invariants.
	ErrInvalidEpisode = errors.New("invalid episode")

	// ErrCyclicRelations marks relation facts that do not form a DAG.
	ErrCyclicRelations = errors.New("relation facts contain a cycle")
)

// ValidationError is returned by PatternValidator when a pattern occurs fewer
// times in the occurrence windows than its recorded frequency.
type ValidationError struct {
	Episode   Episode
	Frequency int
	Observed  int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("episode %s is not found sufficient number of times: frequency = %d, occurrences = %d",
		e.Episode, e.Frequency, e.Observed)
}
