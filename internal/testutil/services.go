package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/datamod/internal/datamodule"
	"github.com/roach88/datamod/internal/ir"
)

// ErrNoResponse is returned by a scripted service whose queue is empty.
var ErrNoResponse = errors.New("no scripted response")

// Response is one scripted service outcome. A non-nil Err fails the call.
type Response struct {
	Value ir.IRValue
	Err   error
}

// Call records one service invocation.
type Call struct {
	Verb datamodule.Verb
	Arg  ir.IRValue
}

// ScriptedServices answers service calls from per-verb response queues.
//
// Responses are consumed in FIFO order. Every call is recorded, including
// those that fail because the queue ran dry.
//
// Thread-safety: ScriptedServices is safe for concurrent use via internal mutex.
type ScriptedServices struct {
	mu     sync.Mutex
	queues map[datamodule.Verb][]Response
	calls  []Call
}

// NewScriptedServices creates an empty script.
func NewScriptedServices() *ScriptedServices {
	return &ScriptedServices{queues: make(map[datamodule.Verb][]Response)}
}

// Respond queues a successful response for verb.
func (s *ScriptedServices) Respond(verb datamodule.Verb, value ir.IRValue) *ScriptedServices {
	return s.Enqueue(verb, Response{Value: value})
}

// Fail queues a failure for verb.
func (s *ScriptedServices) Fail(verb datamodule.Verb, err error) *ScriptedServices {
	return s.Enqueue(verb, Response{Err: err})
}

// Enqueue appends resp to verb's queue.
func (s *ScriptedServices) Enqueue(verb datamodule.Verb, resp Response) *ScriptedServices {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[verb] = append(s.queues[verb], resp)
	return s
}

// Calls returns every recorded call in order.
func (s *ScriptedServices) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Pending returns how many responses remain queued for verb.
func (s *ScriptedServices) Pending(verb datamodule.Verb) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[verb])
}

// Services binds the script to the given verbs. With no verbs, all four are
// bound.
func (s *ScriptedServices) Services(verbs ...datamodule.Verb) datamodule.Services {
	if len(verbs) == 0 {
		verbs = datamodule.Verbs()
	}
	var svc datamodule.Services
	for _, v := range verbs {
		switch v {
		case datamodule.VerbRead:
			svc.Read = func(ctx context.Context) (ir.IRValue, error) {
				return s.next(ctx, datamodule.VerbRead, nil)
			}
		case datamodule.VerbCreate:
			svc.Create = func(ctx context.Context, rec ir.IRValue) (ir.IRValue, error) {
				return s.next(ctx, datamodule.VerbCreate, rec)
			}
		case datamodule.VerbUpdate:
			svc.Update = func(ctx context.Context, rec ir.IRValue) (ir.IRValue, error) {
				return s.next(ctx, datamodule.VerbUpdate, rec)
			}
		case datamodule.VerbDelete:
			svc.Delete = func(ctx context.Context, id ir.IRValue) (ir.IRValue, error) {
				return s.next(ctx, datamodule.VerbDelete, id)
			}
		}
	}
	return svc
}

func (s *ScriptedServices) next(ctx context.Context, verb datamodule.Verb, arg ir.IRValue) (ir.IRValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Verb: verb, Arg: arg})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queue := s.queues[verb]
	if len(queue) == 0 {
		return nil, fmt.Errorf("%s: %w", verb, ErrNoResponse)
	}
	resp := queue[0]
	s.queues[verb] = queue[1:]
	return resp.Value, resp.Err
}
