package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/datamod/internal/config"
	"github.com/roach88/datamod/internal/datamodule"
	"github.com/roach88/datamod/internal/engine"
	"github.com/roach88/datamod/internal/harness"
	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/module"
	"github.com/roach88/datamod/internal/service"
	"github.com/roach88/datamod/internal/store"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Endpoint string
	Database string
	Timeout  time.Duration
}

// SyncResult is the outcome of one sync call.
type SyncResult struct {
	Module string      `json:"module"`
	Verb   string      `json:"verb"`
	Events []string    `json:"events"`
	Result ir.IRValue  `json:"result,omitempty"`
	State  ir.IRObject `json:"state"`
	Views  ir.IRObject `json:"views,omitempty"`
	Error  string      `json:"error,omitempty"`

	fail *Failure
}

func (r SyncResult) failure() *Failure { return r.fail }

func (r SyncResult) writeText(w io.Writer) {
	if r.fail != nil {
		fmt.Fprintf(w, "\u2717 %s %s: %s\n", r.Module, r.Verb, r.Error)
	} else {
		fmt.Fprintf(w, "\u2713 %s %s\n", r.Module, r.Verb)
	}
	for _, ev := range r.Events {
		fmt.Fprintf(w, "  %s\n", ev)
	}
	if r.Result != nil {
		fmt.Fprintf(w, "result: %s\n", canonical(r.Result))
	}
	fmt.Fprintf(w, "state: %s\n", canonical(r.State))
	for _, name := range r.Views.SortedKeys() {
		fmt.Fprintf(w, "view %s: %s\n", name, canonical(r.Views[name]))
	}
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <config> <module> <verb> [json]",
		Short: "Run one module operation and print the resulting state",
		Long: `Build a module from a configuration file, run one operation against
its backing service, and print the events, the module state and every
derived view.

The verb is read, readIfNeeded, create, update or delete. create and
update take a JSON record, delete takes a JSON id.

The module is served by a REST endpoint (--endpoint) or directly by a
SQLite database (--db). Without either flag the config file's endpoint is
used, then its database.

Example:
  datamod sync modules.yaml users read
  datamod sync modules.yaml users create '{"name":"Ada"}' --endpoint http://localhost:8080/api
  datamod sync modules.yaml users delete '"a1b2"' --db ./data.db`,
		Args:          cobra.RangeArgs(3, 4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "REST endpoint (overrides the config file)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "serve the module from a SQLite database instead of REST")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "service call timeout")
	cmd.MarkFlagsMutuallyExclusive("endpoint", "db")

	return cmd
}

func runSync(opts *SyncOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	path, key, verb := args[0], args[1], args[2]

	f, err := config.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if verrs := config.Validate(f); len(verrs) > 0 {
		return emit(formatter, invalidResult(path, verrs))
	}
	spec, ok := f.Module(key)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("module %q not defined in %s", key, path))
	}

	var callArgs []ir.IRValue
	if len(args) == 4 {
		v, err := parseJSONArg(args[3])
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid JSON argument", err)
		}
		callArgs = append(callArgs, v)
	}

	resources, closeResources, err := opts.resources(f)
	if err != nil {
		return err
	}
	defer closeResources()

	m, err := config.BuildModule(spec, resources)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build module", err)
	}

	eng := engine.New()
	if err := eng.Register(m); err != nil {
		return WrapExitError(ExitCommandError, "failed to register module", err)
	}
	defer eng.Stop()

	result := SyncResult{Module: key, Verb: verb, Events: []string{}}
	unsubscribe := eng.Subscribe(func(c engine.Change) {
		formatter.VerboseLog("[%d] %s", c.Seq, c.Event.Type)
		result.Events = append(result.Events, c.Event.Type)
	})
	defer unsubscribe()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithTimeout(parentCtx, opts.Timeout)
	defer cancel()

	slog.Debug("sync call", "module", key, "verb", verb)
	value, callErr := eng.Execute(ctx, m.Call(verb, callArgs...))
	eng.Flush()

	root := eng.State()
	result.Result = value
	result.State = m.ModuleState(root).Snapshot()
	result.Views = derivedViews(m, spec, root)
	if callErr != nil {
		result.Error = callErr.Error()
		exit := WrapExitError(ExitFailure, fmt.Sprintf("%s %s failed", key, verb), callErr)
		result.fail = newFailure(syncErrorCode(callErr), callErr.Error(), exit)
	}

	return emit(formatter, result)
}

// resources picks the backing service for every module. Flags win over
// the config file; within the file the endpoint wins over the database.
func (opts *SyncOptions) resources(f *config.File) (config.ResourceFunc, func(), error) {
	endpoint, database := opts.Endpoint, opts.Database
	if endpoint == "" && database == "" {
		endpoint, database = f.Endpoint, f.Database
		if endpoint != "" {
			database = ""
		}
	}

	if database != "" {
		slog.Debug("sync backend", "database", database)
		st, err := store.Open(database)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		return config.SQLResources(st), func() {
			if err := st.Close(); err != nil {
				slog.Error("error closing database", "error", err)
			}
		}, nil
	}

	if endpoint == "" {
		return nil, nil, NewExitError(ExitCommandError, "no endpoint: set endpoint or database in the config file, or pass --endpoint or --db")
	}
	slog.Debug("sync backend", "endpoint", endpoint)
	client := &http.Client{Timeout: opts.Timeout}
	return config.HTTPResources(endpoint, service.WithHTTPClient(client)), func() {}, nil
}

// parseJSONArg decodes a command-line JSON value.
// Numbers keep their integer precision.
func parseJSONArg(s string) (ir.IRValue, error) {
	return ir.UnmarshalIRValue([]byte(s))
}

// derivedViews evaluates the configured expression views.
func derivedViews(m *datamodule.Module, spec config.ModuleSpec, root module.Tree) ir.IRObject {
	if len(spec.Views) == 0 {
		return nil
	}
	views := make(ir.IRObject, len(spec.Views))
	for name := range spec.Views {
		v, err := harness.ViewValue(m, name, root)
		if err != nil {
			views[name] = ir.IRString("error: " + err.Error())
			continue
		}
		views[name] = v
	}
	return views
}

// syncErrorCode classifies a failed call.
func syncErrorCode(err error) string {
	var statusErr *service.StatusError
	switch {
	case errors.Is(err, datamodule.ErrVerbNotConfigured):
		return "E_VERB"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("E_HTTP_%d", statusErr.StatusCode)
	default:
		return "E_SYNC"
	}
}

func canonical(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
