package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a scenario, validation or service call failed
	ExitCommandError = 2 // the command itself could not run
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError caused by err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that carry no
// ExitError exit with ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Report status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Payload is a command result that can be printed as a report.
type Payload interface {
	SyncResult | ValidationResult | TestResult

	// writeText renders the result for a terminal.
	writeText(w io.Writer)
	// failure is nil when the command succeeded.
	failure() *Failure
}

// Report is the --format json envelope. Data is always the command's own
// result, including on failure.
type Report[T Payload] struct {
	Status string   `json:"status"`
	Data   T        `json:"data"`
	Error  *Failure `json:"error,omitempty"`
}

// Failure is the error part of a Report.
type Failure struct {
	Code    string `json:"code"` // config code (E001, E101...), E_SYNC, E_VERB, E_HTTP_<status>, E_TEST_FAILED
	Message string `json:"message"`

	exit *ExitError
}

// newFailure pairs the reported code and message with the exit error the
// command returns.
func newFailure(code, message string, exit *ExitError) *Failure {
	return &Failure{Code: code, Message: message, exit: exit}
}

// OutputFormatter prints command results in the selected format.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   opts.Verbose,
	}
}

// emit prints result and returns the exit error of a failed result.
func emit[T Payload](f *OutputFormatter, result T) error {
	fail := result.failure()

	if f.Format == "json" {
		report := Report[T]{Status: StatusOK, Data: result}
		if fail != nil {
			report.Status = StatusError
			report.Error = fail
		}
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		result.writeText(f.Writer)
	}

	if fail == nil {
		return nil
	}
	if fail.exit == nil {
		return NewExitError(ExitFailure, fail.Message)
	}
	return fail.exit
}

// VerboseLog writes a diagnostic line when verbose output is on. Lines go
// to ErrWriter so JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
