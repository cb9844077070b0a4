package episodes

import (
	"fmt"
	"strings"
)

// EventKind distinguishes method declarations from invocations.
type EventKind uint8

const (
	MethodDeclaration EventKind = iota + 1
	FirstDeclaration
	SuperDeclaration
	Invocation
)

var eventKindNames = map[EventKind]string{
	MethodDeclaration: "MethodDeclaration",
	FirstDeclaration:  "FirstDeclaration",
	SuperDeclaration:  "SuperDeclaration",
	Invocation:        "Invocation",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// IsDeclaration is true for the three declaration kinds.
func (k EventKind) IsDeclaration() bool {
	return k == MethodDeclaration || k == FirstDeclaration || k == SuperDeclaration
}

func (k EventKind) MarshalText() ([]byte, error) {
	s, ok := eventKindNames[k]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event kind %d", ErrMalformedInput, uint8(k))
	}
	return []byte(s), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	for kind, name := range eventKindNames {
		if strings.EqualFold(name, string(text)) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: unknown event kind %q", ErrMalformedInput, string(text))
}

const (
	// UnknownMethod names the method of invocations that could not be resolved.
	UnknownMethod = "[?] [?].???()"
	// DummyMethod is the method of the dummy declaration that always gets id 0.
	DummyMethod = "[You, Can] [Safely, Ignore].ThisDummyValue()"
)

// Event is a single entry of the usage stream: a declaration or an invocation
// of a method. Events are comparable and used as mapping keys.
type Event struct {
	Kind   EventKind `json:"kind"`
	Method string    `json:"method"`
}

func NewDeclaration(method string) Event { return Event{Kind: MethodDeclaration, Method: method} }

func NewFirstDeclaration(method string) Event { return Event{Kind: FirstDeclaration, Method: method} }

func NewSuperDeclaration(method string) Event { return Event{Kind: SuperDeclaration, Method: method} }

func NewInvocation(method string) Event { return Event{Kind: Invocation, Method: method} }

func NewUnknownEvent() Event { return NewInvocation(UnknownMethod) }

func NewDummyEvent() Event { return NewDeclaration(DummyMethod) }

func (e Event) IsUnknown() bool { return e == NewUnknownEvent() }

func (e Event) String() string {
	return e.Kind.String() + ":" + e.Method
}
