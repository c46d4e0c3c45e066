package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/datamod/internal/config"
)

// ValidationResult is the outcome of validating one config file.
type ValidationResult struct {
	File    string                   `json:"file"`
	Valid   bool                     `json:"valid"`
	Modules []string                 `json:"modules,omitempty"`
	Errors  []config.ValidationError `json:"errors,omitempty"`

	fail *Failure
}

func (r ValidationResult) failure() *Failure { return r.fail }

func (r ValidationResult) writeText(w io.Writer) {
	switch {
	case r.Valid:
		fmt.Fprintf(w, "\u2713 %d module(s) valid\n", len(r.Modules))
	case len(r.Errors) == 0 && r.fail != nil:
		fmt.Fprintf(w, "\u2717 Cannot load %s\n  %s: %s\n", r.File, r.fail.Code, r.fail.Message)
	default:
		fmt.Fprintln(w, "\u2717 Validation failed")
		fmt.Fprintln(w)
		for _, err := range r.Errors {
			if err.Line > 0 {
				fmt.Fprintf(w, "line %d\n", err.Line)
			}
			fmt.Fprintf(w, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
		}
	}
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a module configuration file",
		Long: `Validate a module configuration file without contacting any service.

Loads the file (.yaml, .yml, .json or .cue), then checks every module:
keys and state paths, collection shape and initial data, refresh time,
verbs, and derived view expressions.

Exit codes:
  0 - Configuration valid
  1 - Validation errors found
  2 - File could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	f, err := config.Load(path)
	if err != nil {
		return emit(formatter, loadFailure(path, err))
	}

	keys := make([]string, 0, len(f.Modules))
	for _, spec := range f.Modules {
		formatter.VerboseLog("Validating module: %s", spec.Key)
		keys = append(keys, spec.Key)
	}

	if errs := config.Validate(f); len(errs) > 0 {
		return emit(formatter, invalidResult(path, errs))
	}
	return emit(formatter, ValidationResult{File: path, Valid: true, Modules: keys})
}

// loadFailure reports a config file that could not be read or decoded.
func loadFailure(path string, err error) ValidationResult {
	code := config.ErrCodeGeneric
	var loadErr *config.LoadError
	if errors.As(err, &loadErr) {
		code = loadErr.Code
	}
	return ValidationResult{
		File: path,
		fail: newFailure(code, err.Error(), NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, err))),
	}
}

// invalidResult reports every validation error. The first error's code is
// the report's error code.
func invalidResult(path string, errs []config.ValidationError) ValidationResult {
	exit := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	return ValidationResult{
		File:   path,
		Errors: errs,
		fail:   newFailure(errs[0].Code, errs[0].Message, exit),
	}
}
