package episodes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newWindower(t *testing.T) *StreamWindower {
	t.Helper()
	w, err := NewStreamWindower(DefaultWindowConfig())
	require.NoError(t, err)
	return w
}

func TestWindower_AllGapsBelowTimeoutGiveOneOccurrence(t *testing.T) {
	w := newWindower(t)
	occs := w.Segment(stream(1, 0.0, 2, 0.3, 3, 0.7, 4, 1.1, 2, 1.5))

	require.Len(t, occs, 1)
	require.Equal(t, MustParseFacts("1", "2", "3", "4"), occs[0].Facts())
}

func TestWindower_GapEqualToTimeoutStartsNewOccurrence(t *testing.T) {
	w := newWindower(t)
	occs := w.Segment(stream(1, 0.0, 2, 0.001, 3, 0.501, 4, 0.502))

	require.Len(t, occs, 2)
	require.Equal(t, MustParseFacts("1", "2"), occs[0].Facts())
	require.Equal(t, MustParseFacts("3", "4"), occs[1].Facts())
}

func TestWindower_GapJustBelowTimeoutStaysTogether(t *testing.T) {
	events := stream(1, 0.0, 2, 0.4999999995)
	require.Len(t, newWindower(t).Segment(events), 1)

	tolerant, err := NewStreamWindower(WindowConfig{Timeout: DefaultTimeout, Epsilon: 1e-9})
	require.NoError(t, err)
	require.Len(t, tolerant.Segment(events), 2)
}

func TestWindower_GapMeasuredFromPreviousEvent(t *testing.T) {
	w := newWindower(t)
	// 1.2s after the window start but never 0.5s between neighbours.
	occs := w.Segment(stream(1, 0.0, 2, 0.4, 3, 0.8, 4, 1.2))
	require.Len(t, occs, 1)
}

func TestWindower_EdgeCases(t *testing.T) {
	w := newWindower(t)
	require.Empty(t, w.Segment(nil))

	occs := w.Segment(stream(5, 3.0))
	require.Len(t, occs, 1)
	require.Equal(t, 1, occs[0].Len())

	// repeated events collapse within a window
	occs = w.Segment(stream(1, 0.0, 1, 0.001, 1, 0.002))
	require.Len(t, occs, 1)
	require.Equal(t, 1, occs[0].Len())
}

func TestWindower_EncodedStreamRoundTrip(t *testing.T) {
	es := NewEventStream(DefaultStreamConfig())
	es.AddEvent(NewDeclaration("A.m1()"))
	es.AddEvent(NewInvocation("B.x()"))
	es.AddEvent(NewInvocation("B.y()"))
	es.AddEvent(NewDeclaration("A.m2()"))
	es.AddEvent(NewInvocation("B.x()"))

	events := []StreamEvent{
		{1, 0.500}, {2, 0.501}, {3, 0.502}, {4, 1.003}, {2, 1.004},
	}
	w := newWindower(t)
	occs, decls := w.SegmentWindows(events, es.Mapping())

	require.Len(t, occs, 2)
	require.Equal(t, []EventID{1, 4}, decls)
	require.Equal(t, "A.m2()", EnclosingMethodName(occs[1], es.Mapping()))
}

func TestWindowConfig_Validate(t *testing.T) {
	_, err := NewStreamWindower(WindowConfig{Timeout: 0})
	require.ErrorIs(t, err, ErrPrecondition)
	_, err = NewStreamWindower(WindowConfig{Timeout: 0.5, Epsilon: 0.5})
	require.ErrorIs(t, err, ErrPrecondition)
}

func TestEventStream_MultipleEvents(t *testing.T) {
	s := NewEventStream(DefaultStreamConfig())
	s.AddEvent(NewDeclaration("m0"))
	s.AddEvent(NewDeclaration("m1"))
	s.AddEvent(NewInvocation("m2"))
	s.AddEvent(NewInvocation("m3"))
	s.AddEvent(NewUnknownEvent())
	s.AddEvent(NewInvocation("m2"))

	require.Equal(t, "1,0.500\n2,1.001\n3,1.002\n4,1.003\n3,1.504\n", s.Stream())
	require.Equal(t, 6, s.EventNumber())
	require.Equal(t, 5, s.StreamLength())
	require.Equal(t, []Event{
		NewDummyEvent(),
		NewDeclaration("m0"),
		NewDeclaration("m1"),
		NewInvocation("m2"),
		NewInvocation("m3"),
		NewUnknownEvent(),
	}, s.Mapping())
	require.Equal(t, []Event{
		NewDeclaration("m0"),
		NewDeclaration("m1"),
		NewUnknownEvent(),
	}, s.EnclosingMethods())
}

func TestEventStream_EnclosingMethodsAlignWithWindows(t *testing.T) {
	s := NewEventStream(DefaultStreamConfig())
	s.AddEvent(NewInvocation("B.x()"))
	s.AddEvent(NewDeclaration("A.m1()"))
	s.AddEvent(NewInvocation("B.x()"))
	s.AddEvent(NewUnknownEvent())
	s.AddEvent(NewUnknownEvent())
	s.AddEvent(NewInvocation("B.y()"))
	s.AddEvent(NewInvocation("B.z()"))
	s.AddEvent(NewDeclaration("A.m2()"))
	s.AddEvent(NewInvocation("B.y()"))
	s.AddEvent(NewInvocation("B.z()"))

	occs := newWindower(t).Segment(parseEncoded(t, s.Stream()))
	require.Len(t, occs, 4)
	require.Equal(t, []Event{
		NewUnknownEvent(),
		NewDeclaration("A.m1()"),
		NewUnknownEvent(),
		NewDeclaration("A.m2()"),
	}, s.EnclosingMethods())

	id := func(e Event) Fact {
		v, ok := s.ID(e)
		require.True(t, ok)
		return NewEventFact(v)
	}
	patterns := make(EpisodesBySize)
	patterns.Add(newEpisodeUnchecked(2, 1, toSet([]Fact{id(NewInvocation("B.y()")), id(NewInvocation("B.z()"))})))

	report, err := PatternValidator{}.Validate(patterns, NewOccurrenceIndex(occs...), s.EnclosingMethods())
	require.NoError(t, err)
	require.Equal(t, 2, report.BySize[2][0].Observed)
	require.Equal(t, []Event{NewDeclaration("A.m2()")}, report.BySize[2][0].Methods)
}

func TestEventStream_Defaults(t *testing.T) {
	s := NewEventStream(DefaultStreamConfig())
	require.Equal(t, []Event{NewDummyEvent()}, s.Mapping())
	require.Equal(t, 0, s.StreamLength())
	require.Equal(t, "", s.Stream())

	s.AddEvent(NewUnknownEvent())
	require.Equal(t, 2, s.EventNumber())
	require.Equal(t, "", s.Stream())

	inv := NewEventStream(DefaultStreamConfig())
	inv.AddEvent(NewInvocation("m1"))
	require.Equal(t, "1,0.000\n", inv.Stream())
}

func TestEventStream_Equality(t *testing.T) {
	build := func(methods ...string) *EventStream {
		s := NewEventStream(DefaultStreamConfig())
		s.AddEvent(NewDeclaration("ctx"))
		for _, m := range methods {
			s.AddEvent(NewInvocation(m))
		}
		return s
	}
	require.True(t, build("a").Equal(build("a")))
	require.False(t, build("a").Equal(build("b")))
	require.False(t, build("a", "a").Equal(build("a")))
	require.True(t, NewEventStream(DefaultStreamConfig()).Equal(NewEventStream(DefaultStreamConfig())))
}
