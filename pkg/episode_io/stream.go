package episode_io

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jtomasevic/episodes/pkg/episodes"
)

// ReadStream parses "eventId,timestamp" lines. Blank lines are skipped; any
// other malformed line fails with its line number.
func ReadStream(r io.Reader) ([]episodes.StreamEvent, error) {
	var out []episodes.StreamEvent

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		ev, err := parseStreamLine(line)
		if err != nil {
			return nil, fmt.Errorf("stream line %d: %w", lineNo, err)
		}
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return out, nil
}

func parseStreamLine(line string) (episodes.StreamEvent, error) {
	idPart, tsPart, ok := strings.Cut(line, ",")
	if !ok {
		return episodes.StreamEvent{}, fmt.Errorf("%w: expected id,timestamp in %q", episodes.ErrMalformedInput, line)
	}
	id, err := strconv.Atoi(strings.TrimSpace(idPart))
	if err != nil || id < 0 {
		return episodes.StreamEvent{}, fmt.Errorf("%w: bad event id %q", episodes.ErrMalformedInput, idPart)
	}
	ts, err := strconv.ParseFloat(strings.TrimSpace(tsPart), 64)
	if err != nil {
		return episodes.StreamEvent{}, fmt.Errorf("%w: bad timestamp %q", episodes.ErrMalformedInput, tsPart)
	}
	return episodes.StreamEvent{ID: episodes.EventID(id), Timestamp: ts}, nil
}

// WriteStream writes events with 3-decimal timestamps.
func WriteStream(w io.Writer, events []episodes.StreamEvent) error {
	bw := bufio.NewWriter(w)
	for _, ev := range events {
		if _, err := fmt.Fprintf(bw, "%d,%.3f\n", ev.ID, ev.Timestamp); err != nil {
			return err
		}
	}
	return bw.Flush()
}
