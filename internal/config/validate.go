package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/roach88/datamod/internal/datamodule"
	"github.com/roach88/datamod/internal/derive"
	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/module"
)

// Validation error codes (E100-E199)
const (
	ErrKeyRequired    = "E101" // module key is required
	ErrDuplicateKey   = "E102" // module key used twice
	ErrPathOverlap    = "E103" // state paths equal or nested
	ErrInvalidShape   = "E104" // shape or initialData shape invalid
	ErrInvalidRefresh = "E105" // refreshTime not a non-negative duration
	ErrUnknownVerb    = "E106" // verb not one of read/create/update/delete
	ErrInvalidView    = "E107" // view expression does not compile
	ErrReservedView   = "E108" // view name shadows a generated view
	ErrInvalidState   = "E109" // initialState not representable
	ErrInvalidURL     = "E110" // endpoint is not an absolute URL
)

// reservedViews are registered on every module.
var reservedViews = []string{
	datamodule.ViewData,
	datamodule.ViewDataByID,
	datamodule.ViewIsLoading,
	datamodule.ViewIsModifying,
	datamodule.ViewIsError,
	datamodule.ViewIsLoaded,
	datamodule.ViewLastUpdated,
}

// ValidationError represents one problem in a configuration file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks f and returns every problem found.
func Validate(f *File) []ValidationError {
	var errs []ValidationError

	if f.Endpoint != "" {
		u, err := url.Parse(f.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "endpoint",
				Message: fmt.Sprintf("must be an absolute URL, got %q", f.Endpoint),
				Code:    ErrInvalidURL,
			})
		}
	}

	seen := make(map[string]int)
	var paths [][]string
	var owners []string
	for i, spec := range f.Modules {
		line := f.line(i)
		field := fmt.Sprintf("modules[%d]", i)
		if spec.Key != "" {
			field = "modules." + spec.Key
		}
		add := func(sub, code, msg string) {
			name := field
			if sub != "" {
				name += "." + sub
			}
			errs = append(errs, ValidationError{Field: name, Message: msg, Code: code, Line: line})
		}

		// E101/E102/E103
		if spec.Key == "" {
			add("key", ErrKeyRequired, "module key is required")
		} else if first, dup := seen[spec.Key]; dup {
			add("key", ErrDuplicateKey, fmt.Sprintf("key %q already used by modules[%d]", spec.Key, first))
		} else {
			seen[spec.Key] = i
			statePath := spec.StatePath
			if statePath == "" {
				statePath = spec.Key
			}
			path := module.SplitPath(statePath)
			for j, other := range paths {
				if nested(path, other) {
					add("statePath", ErrPathOverlap, fmt.Sprintf("state path %q overlaps module %q", statePath, owners[j]))
				}
			}
			paths = append(paths, path)
			owners = append(owners, spec.Key)
		}

		// E104
		if _, err := spec.Data(); err != nil {
			add("shape", ErrInvalidShape, err.Error())
		}

		// E105
		if _, err := spec.Refresh(); err != nil {
			add("refreshTime", ErrInvalidRefresh, err.Error())
		}

		// E106
		for _, name := range spec.Verbs {
			if _, ok := datamodule.ParseVerb(name); !ok {
				add("verbs", ErrUnknownVerb, fmt.Sprintf("unknown verb %q", name))
			}
		}

		// E107/E108
		for _, name := range sortedViewNames(spec.Views) {
			if slices.Contains(reservedViews, name) {
				add("views."+name, ErrReservedView, fmt.Sprintf("%q is a generated view", name))
				continue
			}
			if _, err := derive.Compile(spec.Views[name]); err != nil {
				add("views."+name, ErrInvalidView, err.Error())
			}
		}

		// E109
		if len(spec.InitialState) > 0 {
			if _, err := ir.FromGo(spec.InitialState); err != nil {
				add("initialState", ErrInvalidState, err.Error())
			}
		}
	}

	return errs
}

// nested reports whether a and b are equal or one is a prefix of the other.
func nested(a, b []string) bool {
	n := min(len(a), len(b))
	return slices.Equal(a[:n], b[:n])
}

func sortedViewNames(views map[string]string) []string {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
