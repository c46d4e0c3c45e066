package datamodule

import (
	"context"

	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/module"
)

// lifecycle is the three event types generated for one verb.
type lifecycle struct {
	start, success, failure string
}

func (m *Module) registerLifecycle(v Verb) lifecycle {
	return lifecycle{
		start:   m.RegisterEventType(string(v) + "Start"),
		success: m.RegisterEventType(string(v) + "Success"),
		failure: m.RegisterEventType(string(v) + "Error"),
	}
}

func (m *Module) registerRead(read ReadFunc) {
	lc := m.registerLifecycle(VerbRead)

	m.RegisterReducer(lc.start, func(s State, _ module.Event) State {
		s.IsLoading = true
		s.IsError = false
		return s
	})
	m.RegisterReducer(lc.success, func(s State, ev module.Event) State {
		s.IsLoading = false
		s.IsLoaded = true
		s.Data = Normalize(m.kind, ev.Payload, m.idField)
		s.LastUpdated = m.clock.Now()
		return s
	})
	m.RegisterReducer(lc.failure, func(s State, _ module.Event) State {
		s.IsLoading = false
		s.IsError = true
		s.Data = m.initialData
		return s
	})

	readThunk := func(ctx context.Context, dispatch module.Dispatch, _ module.GetState) (ir.IRValue, error) {
		dispatch(module.Event{Type: lc.start})
		resp, err := read(ctx)
		if err != nil {
			dispatch(module.Event{Type: lc.failure})
			return nil, err
		}
		dispatch(module.Event{Type: lc.success, Payload: resp})
		return resp, nil
	}

	m.RegisterTrigger(string(VerbRead), func(...ir.IRValue) module.Thunk {
		return readThunk
	})
	m.RegisterTrigger(TriggerReadIfNeeded, func(...ir.IRValue) module.Thunk {
		return func(ctx context.Context, dispatch module.Dispatch, getState module.GetState) (ir.IRValue, error) {
			if !m.ShouldFetch(getState()) {
				return nil, nil
			}
			return readThunk(ctx, dispatch, getState)
		}
	})
}

type mergeFunc func(c Collection, v ir.IRValue, idField string) Collection

func (m *Module) registerWrite(v Verb, write WriteFunc, merge mergeFunc) {
	lc := m.registerWriteReducers(v, merge)

	m.RegisterTrigger(string(v), func(args ...ir.IRValue) module.Thunk {
		record := arg(args, 0)
		return func(ctx context.Context, dispatch module.Dispatch, _ module.GetState) (ir.IRValue, error) {
			dispatch(module.Event{Type: lc.start, Payload: record})
			resp, err := write(ctx, record)
			if err != nil {
				dispatch(module.Event{Type: lc.failure})
				return nil, err
			}
			dispatch(module.Event{Type: lc.success, Payload: resp})
			return resp, nil
		}
	})
}

func (m *Module) registerDelete(del DeleteFunc) {
	lc := m.registerWriteReducers(VerbDelete, mergeDelete)

	m.RegisterTrigger(string(VerbDelete), func(args ...ir.IRValue) module.Thunk {
		id := arg(args, 0)
		return func(ctx context.Context, dispatch module.Dispatch, _ module.GetState) (ir.IRValue, error) {
			dispatch(module.Event{Type: lc.start, Payload: id})
			if _, err := del(ctx, id); err != nil {
				dispatch(module.Event{Type: lc.failure})
				return nil, err
			}
			dispatch(module.Event{Type: lc.success, Payload: id})
			return nil, nil
		}
	})
}

func (m *Module) registerWriteReducers(v Verb, merge mergeFunc) lifecycle {
	lc := m.registerLifecycle(v)

	m.RegisterReducer(lc.start, func(s State, _ module.Event) State {
		s.IsModifying = true
		s.IsError = false
		return s
	})
	m.RegisterReducer(lc.success, func(s State, ev module.Event) State {
		s.IsModifying = false
		s.Data = merge(s.Data, ev.Payload, m.idField)
		s.LastUpdated = m.clock.Now()
		return s
	})
	m.RegisterReducer(lc.failure, func(s State, _ module.Event) State {
		s.IsModifying = false
		s.IsError = true
		return s
	})

	return lc
}

func arg(args []ir.IRValue, i int) ir.IRValue {
	if i < len(args) {
		return args[i]
	}
	return nil
}
