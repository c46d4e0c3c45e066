package datamodule

import (
	"context"
	"time"

	"github.com/roach88/datamod/internal/ir"
)

// Verb names one of the four collection operations.
type Verb string

const (
	VerbRead   Verb = "read"
	VerbCreate Verb = "create"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// Verbs lists every verb in lifecycle registration order.
func Verbs() []Verb {
	return []Verb{VerbRead, VerbCreate, VerbUpdate, VerbDelete}
}

// ParseVerb converts a verb name into a Verb.
func ParseVerb(s string) (Verb, bool) {
	for _, v := range Verbs() {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

// TriggerReadIfNeeded is the trigger name for the staleness-gated read.
const TriggerReadIfNeeded = "readIfNeeded"

// ReadFunc fetches the whole collection.
type ReadFunc func(ctx context.Context) (ir.IRValue, error)

// WriteFunc sends a record (create, update) and returns the server's copy.
type WriteFunc func(ctx context.Context, record ir.IRValue) (ir.IRValue, error)

// DeleteFunc removes the record with the given id. Its result is ignored.
type DeleteFunc func(ctx context.Context, id ir.IRValue) (ir.IRValue, error)

// Services holds the remote calls backing each verb. A nil entry leaves the
// verb unconfigured: no events and no trigger are generated for it.
type Services struct {
	Read   ReadFunc
	Create WriteFunc
	Update WriteFunc
	Delete DeleteFunc
}

// Has reports whether v has a service.
func (s Services) Has(v Verb) bool {
	switch v {
	case VerbRead:
		return s.Read != nil
	case VerbCreate:
		return s.Create != nil
	case VerbUpdate:
		return s.Update != nil
	case VerbDelete:
		return s.Delete != nil
	default:
		return false
	}
}

type settings struct {
	statePath    string
	eventPrefix  string
	initialState ir.IRObject
	initialData  ir.IRValue
	refreshTime  time.Duration
	idField      string
	services     Services
	clock        Clock
}

func defaultSettings() settings {
	return settings{
		refreshTime: DefaultRefreshTime,
		idField:     "id",
		clock:       SystemClock{},
	}
}

// Option configures a Module.
type Option func(*settings)

// WithStatePath places the module's slice at a dot-separated path instead
// of at its key.
func WithStatePath(path string) Option {
	return func(s *settings) {
		s.statePath = path
	}
}

// WithEventPrefix overrides the event-type prefix derived from the key.
func WithEventPrefix(prefix string) Option {
	return func(s *settings) {
		s.eventPrefix = prefix
	}
}

// WithInitialState supplies extra initial fields. They are kept in
// State.Extra and never touched by the lifecycle.
func WithInitialState(extra ir.IRObject) Option {
	return func(s *settings) {
		s.initialState = extra
	}
}

// WithInitialData sets the initial collection. Its shape fixes the module's
// representation: an array selects list mode, an object selects map mode.
func WithInitialData(data ir.IRValue) Option {
	return func(s *settings) {
		s.initialData = data
	}
}

// WithRefreshTime sets the staleness window for ReadIfNeeded. Zero means
// always refetch when idle.
func WithRefreshTime(d time.Duration) Option {
	return func(s *settings) {
		s.refreshTime = d
	}
}

// WithIDField names the record field holding the identifier.
func WithIDField(field string) Option {
	return func(s *settings) {
		s.idField = field
	}
}

// WithServices supplies the remote calls. Verbs with a nil service are
// left out of the generated module.
func WithServices(svc Services) Option {
	return func(s *settings) {
		s.services = svc
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}
