// Package derive adds expression-defined views to collection modules.
//
// An expression is compiled once with expr-lang/expr and evaluated against
// the module's state. The environment exposes:
//
//	data         the collection in its own shape (array or object)
//	items        the records in order (map modules: sorted by key)
//	count        number of records
//	isLoading    isModifying  isError  isLoaded
//	lastUpdated  Unix milliseconds of the last success, 0 for never
//	extra        caller-supplied initial fields
//
// Derived views are registered through the module's view registry, so they
// recompute only when the module's state changes.
package derive

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/roach88/datamod/internal/datamodule"
	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/module"
)

// ErrViewExists is returned when a derived view would replace a view the
// module already has.
var ErrViewExists = errors.New("view already registered")

// ErrNotDerived is returned by Eval for a view that Register did not create.
var ErrNotDerived = errors.New("not a derived view")

// ExprError wraps a compile or evaluation failure with its expression.
type ExprError struct {
	Expression string
	Err        error
}

func (e *ExprError) Error() string {
	return fmt.Sprintf("expression %q: %v", e.Expression, e.Err)
}

func (e *ExprError) Unwrap() error { return e.Err }

// Program is a compiled view expression.
type Program struct {
	source  string
	program *exprvm.Program
}

// Compile compiles source against the view environment. Unknown variables
// are compile errors.
func Compile(source string) (*Program, error) {
	if source == "" {
		return nil, &ExprError{Expression: source, Err: errors.New("expression must not be empty")}
	}
	program, err := expr.Compile(source, expr.Env(environment{}))
	if err != nil {
		return nil, &ExprError{Expression: source, Err: err}
	}
	return &Program{source: source, program: program}, nil
}

// Source returns the expression text.
func (p *Program) Source() string { return p.source }

// Eval runs the program against s and converts the result to an IRValue.
func (p *Program) Eval(s datamodule.State) (ir.IRValue, error) {
	out, err := expr.Run(p.program, newEnvironment(s))
	if err != nil {
		return nil, &ExprError{Expression: p.source, Err: err}
	}
	v, err := ir.FromGo(out)
	if err != nil {
		return nil, &ExprError{Expression: p.source, Err: err}
	}
	return v, nil
}

// environment is the variable set a view expression sees.
type environment struct {
	Data        any            `expr:"data"`
	Items       []any          `expr:"items"`
	Count       int            `expr:"count"`
	IsLoading   bool           `expr:"isLoading"`
	IsModifying bool           `expr:"isModifying"`
	IsError     bool           `expr:"isError"`
	IsLoaded    bool           `expr:"isLoaded"`
	LastUpdated int64          `expr:"lastUpdated"`
	Extra       map[string]any `expr:"extra"`
}

func newEnvironment(s datamodule.State) environment {
	items := s.Data.Items()
	extra := make(map[string]any, len(s.Extra))
	for k, v := range s.Extra {
		extra[k] = ir.ToGo(v)
	}
	var lastUpdated int64
	if !s.LastUpdated.IsZero() {
		lastUpdated = s.LastUpdated.UnixMilli()
	}
	return environment{
		Data:        ir.ToGo(s.Data.Value()),
		Items:       ir.ToGo(items).([]any),
		Count:       len(items),
		IsLoading:   s.IsLoading,
		IsModifying: s.IsModifying,
		IsError:     s.IsError,
		IsLoaded:    s.IsLoaded,
		LastUpdated: lastUpdated,
		Extra:       extra,
	}
}

// result is what a derived view returns. Errors are values so a broken
// expression surfaces on read instead of panicking inside the view.
type result struct {
	value ir.IRValue
	err   error
}

// Register compiles source and installs it as view name on m.
func Register(m *datamodule.Module, name, source string) error {
	if name == "" {
		return errors.New("derive: view name must not be empty")
	}
	if _, ok := m.View(name); ok {
		return fmt.Errorf("derive: %s.%s: %w", m.Key(), name, ErrViewExists)
	}
	p, err := Compile(source)
	if err != nil {
		return fmt.Errorf("derive: %s.%s: %w", m.Key(), name, err)
	}
	m.RegisterView(name,
		[]module.Input[datamodule.State]{func(_ module.Tree, s datamodule.State) any { return s }},
		func(args ...any) any {
			v, err := p.Eval(args[0].(datamodule.State))
			return result{value: v, err: err}
		})
	return nil
}

// RegisterAll registers every name -> expression pair, stopping at the
// first failure.
func RegisterAll(m *datamodule.Module, views map[string]string) error {
	for _, name := range sortedNames(views) {
		if err := Register(m, name, views[name]); err != nil {
			return err
		}
	}
	return nil
}

// Eval reads derived view name from m against root.
func Eval(m *datamodule.Module, name string, root module.Tree) (ir.IRValue, error) {
	view, ok := m.View(name)
	if !ok {
		return nil, fmt.Errorf("derive: %s.%s: %w", m.Key(), name, ErrNotDerived)
	}
	r, ok := view(root).(result)
	if !ok {
		return nil, fmt.Errorf("derive: %s.%s: %w", m.Key(), name, ErrNotDerived)
	}
	return r.value, r.err
}

func sortedNames(views map[string]string) []string {
	return slices.Sorted(maps.Keys(views))
}
