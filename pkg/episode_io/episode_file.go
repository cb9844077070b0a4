package episode_io

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jtomasevic/episodes/pkg/episodes"
)

// Raw episode file, as written by the frequent episode miner:
//
//	2-node frequent episodes = 2
//	1 2 : 5 : 0.75 : 1.1>2,
//	1 3 : 4 : 0.5 : 0.
//	3-node frequent episodes = 0
//
// A header with zero episodes ends the file.

const headerMarker = "-node"

// ReadEpisodes parses a raw episode file into episodes grouped by size.
func ReadEpisodes(r io.Reader) (episodes.EpisodesBySize, error) {
	out := make(episodes.EpisodesBySize)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	numNodes := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if !strings.Contains(line, ":") {
			n, count, err := parseHeader(line)
			if err != nil {
				return nil, fmt.Errorf("episode file line %d: %w", lineNo, err)
			}
			if count == 0 {
				return out, nil
			}
			numNodes = n
			if _, ok := out[n]; !ok {
				out[n] = episodes.NewEpisodeSet()
			}
			continue
		}

		if numNodes == 0 {
			return nil, fmt.Errorf("episode file line %d: %w: episode before any header", lineNo, episodes.ErrMalformedInput)
		}
		ep, err := parseEpisodeLine(numNodes, line)
		if err != nil {
			return nil, fmt.Errorf("episode file line %d: %w", lineNo, err)
		}
		out[numNodes].Add(ep)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read episodes: %w", err)
	}
	return out, nil
}

// parseHeader reads "N-node ... = K".
func parseHeader(line string) (int, int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasSuffix(fields[0], headerMarker) {
		return 0, 0, fmt.Errorf("%w: bad header %q", episodes.ErrMalformedInput, line)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(fields[0], headerMarker))
	if err != nil || n <= 0 {
		return 0, 0, fmt.Errorf("%w: bad node count in %q", episodes.ErrMalformedInput, line)
	}
	count, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || count < 0 {
		return 0, 0, fmt.Errorf("%w: bad episode count in %q", episodes.ErrMalformedInput, line)
	}
	return n, count, nil
}

func parseEpisodeLine(numNodes int, line string) (episodes.Episode, error) {
	parts := strings.Split(line, ":")
	if len(parts) != 4 {
		return episodes.Episode{}, fmt.Errorf("%w: expected 4 ':' separated fields, got %d", episodes.ErrMalformedInput, len(parts))
	}

	b := episodes.NewEpisodeBuilder()

	ids := strings.Fields(parts[0])
	if len(ids) > 0 && ids[len(ids)-1] == "." {
		ids = ids[:len(ids)-1]
	}
	if len(ids) != numNodes {
		return episodes.Episode{}, fmt.Errorf("%w: %d-node episode lists %d events", episodes.ErrMalformedInput, numNodes, len(ids))
	}
	seen := make(map[episodes.Fact]struct{}, len(ids))
	for _, id := range ids {
		f, err := episodes.ParseFact(id)
		if err != nil {
			return episodes.Episode{}, err
		}
		if !f.IsEvent() {
			return episodes.Episode{}, fmt.Errorf("%w: %q is not an event id", episodes.ErrMalformedInput, id)
		}
		if _, dup := seen[f]; dup {
			return episodes.Episode{}, fmt.Errorf("%w: event %s repeated in %d-node episode", episodes.ErrMalformedInput, id, numNodes)
		}
		seen[f] = struct{}{}
		b.AddFact(f)
	}

	freq, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return episodes.Episode{}, fmt.Errorf("%w: bad frequency %q", episodes.ErrMalformedInput, parts[1])
	}
	entropy, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return episodes.Episode{}, fmt.Errorf("%w: bad entropy %q", episodes.ErrMalformedInput, parts[2])
	}
	b.SetFrequency(freq).SetEntropy(entropy)

	relations, err := parseRelations(strings.TrimSpace(parts[3]))
	if err != nil {
		return episodes.Episode{}, err
	}
	b.AddFacts(relations...)

	return b.Build()
}

// parseRelations reads "<count>.<a>><b>,<c>><d>,". An empty field means no
// relations.
func parseRelations(field string) ([]episodes.Fact, error) {
	if field == "" {
		return nil, nil
	}
	countPart, list, ok := strings.Cut(field, ".")
	if !ok {
		return nil, fmt.Errorf("%w: relation field %q lacks a count", episodes.ErrMalformedInput, field)
	}
	count, err := strconv.Atoi(strings.TrimSpace(countPart))
	if err != nil || count < 0 {
		return nil, fmt.Errorf("%w: bad relation count %q", episodes.ErrMalformedInput, countPart)
	}

	var out []episodes.Fact
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		f, err := episodes.ParseFact(s)
		if err != nil {
			return nil, err
		}
		if !f.IsRelation() {
			return nil, fmt.Errorf("%w: %q is not a relation", episodes.ErrMalformedInput, s)
		}
		out = append(out, f)
	}
	if len(out) != count {
		return nil, fmt.Errorf("%w: relation count %d but %d relations listed", episodes.ErrMalformedInput, count, len(out))
	}
	return out, nil
}

// WriteEpisodes writes m in the raw episode file format, terminated by an
// empty header.
func WriteEpisodes(w io.Writer, m episodes.EpisodesBySize) error {
	bw := bufio.NewWriter(w)
	last := 0
	for _, size := range m.Sizes() {
		set := m[size]
		if set.Len() == 0 {
			continue
		}
		fmt.Fprintf(bw, "%d-node frequent episodes = %d\n", size, set.Len())
		for _, ep := range set.Items() {
			writeEpisodeLine(bw, ep)
		}
		last = size
	}
	fmt.Fprintf(bw, "%d-node frequent episodes = 0\n", last+1)
	return bw.Flush()
}

func writeEpisodeLine(w io.Writer, ep episodes.Episode) {
	ids := make([]string, 0, ep.NumEvents())
	for _, f := range ep.Events() {
		ids = append(ids, f.String())
	}
	var rels strings.Builder
	for _, f := range ep.Relations() {
		rels.WriteString(f.String())
		rels.WriteByte(',')
	}
	fmt.Fprintf(w, "%s : %d : %s : %d.%s\n",
		strings.Join(ids, " "), ep.Frequency(),
		strconv.FormatFloat(ep.Entropy(), 'f', -1, 64),
		len(ep.Relations()), rels.String())
}
