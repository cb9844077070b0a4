package episode_io

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/jtomasevic/episodes/pkg/episodes"
)

// dotNode is an event node labelled with its mapped method.
type dotNode struct {
	id    int64
	label string
}

func (n dotNode) ID() int64 { return n.id }

func (n dotNode) DOTID() string { return fmt.Sprintf("n%d", n.id) }

func (n dotNode) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "label", Value: n.label}}
}

// WriteDOT renders the precedence graph of ep. Pass the reduced episode to get
// the minimal drawing. mapping is optional.
func WriteDOT(w io.Writer, name string, ep episodes.Episode, mapping []episodes.Event) error {
	g := simple.NewDirectedGraph()
	nodes := make(map[episodes.Fact]dotNode)
	for _, ev := range ep.Events() {
		label := ev.String()
		if id := int(ev.ID()); id < len(mapping) {
			label = mapping[id].String()
		}
		n := dotNode{id: int64(ev.ID()), label: label}
		nodes[ev] = n
		g.AddNode(n)
	}
	for _, rel := range ep.Relations() {
		from, to := rel.Endpoints()
		if from == to {
			return fmt.Errorf("%w: self relation %s", episodes.ErrCyclicRelations, rel)
		}
		g.SetEdge(simple.Edge{F: nodes[from], T: nodes[to]})
	}

	b, err := dot.Marshal(g, name, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dot: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}
