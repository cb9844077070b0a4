package episodes

import (
	"fmt"
	"strconv"
	"strings"
)

// StreamConfig carries the clock constants of the stream encoder.
type StreamConfig struct {
	// Timeout is the gap inserted before every method declaration and for every
	// unknown event. It must match the windowing timeout.
	Timeout float64
	// Delta is the clock advance after every written event.
	Delta float64
}

func DefaultStreamConfig() StreamConfig {
	return StreamConfig{Timeout: DefaultTimeout, Delta: DefaultDelta}
}

// EventStream encodes a sequence of events into the "id,timestamp" stream
// consumed by the miner and the windower.
//
// The mapping is insertion ordered and id 0 always belongs to the dummy event.
// EventStream is not safe for concurrent use.
type EventStream struct {
	cfg StreamConfig

	ids     map[Event]EventID
	mapping []Event

	enclosing []Event
	sb        strings.Builder
	length    int
	time      float64
	// gap is set by an unknown event: the next written event opens a window.
	gap bool
}

func NewEventStream(cfg StreamConfig) *EventStream {
	s := &EventStream{
		cfg: cfg,
		ids: make(map[Event]EventID),
	}
	s.idOf(NewDummyEvent())
	return s
}

func (s *EventStream) idOf(e Event) EventID {
	if id, ok := s.ids[e]; ok {
		return id
	}
	id := EventID(len(s.mapping))
	s.ids[e] = id
	s.mapping = append(s.mapping, e)
	return id
}

// AddEvent maps e and appends it to the stream.
//
// Unknown events are mapped but not written; they only advance the clock by
// the timeout, which separates what came before from what comes after.
// Method declarations advance the clock by the timeout before being written.
func (s *EventStream) AddEvent(e Event) {
	id := s.idOf(e)
	if e.IsUnknown() {
		s.time += s.cfg.Timeout
		s.gap = true
		return
	}
	switch {
	case e.Kind == MethodDeclaration:
		s.time += s.cfg.Timeout
		s.enclosing = append(s.enclosing, e)
	case s.gap || s.length == 0:
		// a window opened by an invocation has no known method
		s.enclosing = append(s.enclosing, NewUnknownEvent())
	}
	s.gap = false
	s.sb.WriteString(strconv.Itoa(int(id)))
	s.sb.WriteByte(',')
	s.sb.WriteString(strconv.FormatFloat(s.time, 'f', 3, 64))
	s.sb.WriteByte('\n')
	s.length++
	s.time += s.cfg.Delta
}

// Mapping returns the mapped events; the index of an event is its id.
func (s *EventStream) Mapping() []Event { return append([]Event(nil), s.mapping...) }

// EventNumber counts the mapped events, including the dummy event.
func (s *EventStream) EventNumber() int { return len(s.mapping) }

// StreamLength counts the written stream lines.
func (s *EventStream) StreamLength() int { return s.length }

func (s *EventStream) Stream() string { return s.sb.String() }

// EnclosingMethods names the method of every window of the written stream, in
// stream order. Windows not opened by a method declaration get the unknown
// event, so the list stays aligned with the windowed stream.
func (s *EventStream) EnclosingMethods() []Event { return append([]Event(nil), s.enclosing...) }

// ID returns the id of a mapped event.
func (s *EventStream) ID(e Event) (EventID, bool) {
	id, ok := s.ids[e]
	return id, ok
}

func (s *EventStream) Equal(other *EventStream) bool {
	if s.length != other.length || s.Stream() != other.Stream() || len(s.mapping) != len(other.mapping) {
		return false
	}
	for i := range s.mapping {
		if s.mapping[i] != other.mapping[i] {
			return false
		}
	}
	return true
}

func (s *EventStream) String() string {
	return fmt.Sprintf("EventStream{events=%d, length=%d}", len(s.mapping), s.length)
}
