package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datamod/internal/ir"
	"github.com/roach88/datamod/internal/server"
	"github.com/roach88/datamod/internal/store"
)

const syncConfig = `modules:
  - key: users
    verbs: [read, create, update, delete]
    views:
      total: count
      names: map(items, .name)
  - key: tags
    shape: map
    idField: slug
    verbs: [read]
`

type syncResponse struct {
	Status string `json:"status"`
	Data   struct {
		Module string         `json:"module"`
		Verb   string         `json:"verb"`
		Events []string       `json:"events"`
		Result any            `json:"result"`
		State  map[string]any `json:"state"`
		Views  map[string]any `json:"views"`
		Error  string         `json:"error"`
	} `json:"data"`
	Error *Failure `json:"error"`
}

func executeSync(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewSyncCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func decodeSync(t *testing.T, buf *bytes.Buffer) syncResponse {
	t.Helper()
	var resp syncResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), buf.String())
	return resp
}

func TestSyncCreateThenReadFromDatabase(t *testing.T) {
	path := writeConfig(t, "modules.yaml", syncConfig)
	dbPath := filepath.Join(t.TempDir(), "data.db")

	buf, err := executeSync(t, "json", path, "users", "create", `{"id":"u1","name":"Ada"}`, "--db", dbPath)
	require.NoError(t, err)

	created := decodeSync(t, buf)
	assert.Equal(t, "ok", created.Status)
	assert.Equal(t, []string{"USERS/CREATE_START", "USERS/CREATE_SUCCESS"}, created.Data.Events)
	assert.Equal(t, map[string]any{"id": "u1", "name": "Ada"}, created.Data.Result)
	assert.Equal(t, []any{map[string]any{"id": "u1", "name": "Ada"}}, created.Data.State["data"])
	assert.Equal(t, false, created.Data.State["isLoaded"], "a write does not mark the module loaded")

	buf, err = executeSync(t, "json", path, "users", "read", "--db", dbPath)
	require.NoError(t, err)

	read := decodeSync(t, buf)
	assert.Equal(t, []string{"USERS/READ_START", "USERS/READ_SUCCESS"}, read.Data.Events)
	assert.Equal(t, true, read.Data.State["isLoaded"])
	assert.Equal(t, false, read.Data.State["isLoading"])
	assert.Equal(t, float64(1), read.Data.Views["total"])
	assert.Equal(t, []any{"Ada"}, read.Data.Views["names"])
}

func TestSyncMapModuleFromDatabase(t *testing.T) {
	path := writeConfig(t, "modules.yaml", syncConfig)
	dbPath := filepath.Join(t.TempDir(), "data.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	tags := st.Records("tags", "slug")
	_, err = tags.Insert(t.Context(), ir.IRObject{"slug": ir.IRString("go"), "label": ir.IRString("Go")})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	buf, err := executeSync(t, "json", path, "tags", "read", "--db", dbPath)
	require.NoError(t, err)

	resp := decodeSync(t, buf)
	assert.Equal(t, map[string]any{"go": map[string]any{"slug": "go", "label": "Go"}}, resp.Data.State["data"])
}

func TestSyncOverHTTP(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	ts := httptest.NewServer(server.New(st).Routes())
	t.Cleanup(ts.Close)

	path := writeConfig(t, "modules.yaml", syncConfig)

	buf, err := executeSync(t, "text", path, "users", "create", `{"id":"u9","name":"Grace"}`, "--endpoint", ts.URL+"/api")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "users create")
	assert.Contains(t, buf.String(), "USERS/CREATE_SUCCESS")

	buf, err = executeSync(t, "text", path, "users", "read", "--endpoint", ts.URL+"/api")
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "USERS/READ_SUCCESS")
	assert.Contains(t, output, `"data":[{"id":"u9","name":"Grace"}]`)
	assert.Contains(t, output, "view names: [\"Grace\"]")
	assert.Contains(t, output, "view total: 1")
}

func TestSyncServiceFailure(t *testing.T) {
	path := writeConfig(t, "modules.yaml", syncConfig)
	dbPath := filepath.Join(t.TempDir(), "data.db")

	buf, err := executeSync(t, "json", path, "users", "update", `{"id":"ghost","name":"Nobody"}`, "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeSync(t, buf)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_SYNC", resp.Error.Code)
	assert.Equal(t, []string{"USERS/UPDATE_START", "USERS/UPDATE_ERROR"}, resp.Data.Events)
	assert.Equal(t, true, resp.Data.State["isError"])
	assert.Equal(t, false, resp.Data.State["isModifying"])
}

func TestSyncUnconfiguredVerb(t *testing.T) {
	path := writeConfig(t, "modules.yaml", syncConfig)
	dbPath := filepath.Join(t.TempDir(), "data.db")

	buf, err := executeSync(t, "json", path, "tags", "create", `{"slug":"x"}`, "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeSync(t, buf)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_VERB", resp.Error.Code)
	assert.Empty(t, resp.Data.Events, "an unconfigured verb dispatches nothing")
}

func TestSyncReadIfNeededSkipsFreshModule(t *testing.T) {
	path := writeConfig(t, "modules.yaml", syncConfig)
	dbPath := filepath.Join(t.TempDir(), "data.db")

	buf, err := executeSync(t, "json", path, "users", "readIfNeeded", "--db", dbPath)
	require.NoError(t, err)

	resp := decodeSync(t, buf)
	assert.Equal(t, []string{"USERS/READ_START", "USERS/READ_SUCCESS"}, resp.Data.Events, "a cold module always fetches")
}

func TestSyncCommandErrors(t *testing.T) {
	path := writeConfig(t, "modules.yaml", syncConfig)
	noEndpoint := writeConfig(t, "bare.yaml", "modules:\n  - key: users\n")
	invalid := writeConfig(t, "invalid.yaml", invalidConfig)

	tests := []struct {
		name     string
		args     []string
		code     int
		contains string
	}{
		{"missing config", []string{"/nonexistent.yaml", "users", "read"}, ExitCommandError, "failed to load config"},
		{"unknown module", []string{path, "orders", "read", "--db", ":memory:"}, ExitCommandError, `module "orders" not defined`},
		{"bad json", []string{path, "users", "create", "{nope", "--db", ":memory:"}, ExitCommandError, "invalid JSON argument"},
		{"no endpoint", []string{noEndpoint, "users", "read"}, ExitCommandError, "no endpoint"},
		{"invalid config", []string{invalid, "users", "read"}, ExitFailure, "validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeSync(t, "text", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestSyncFlagsExclusive(t *testing.T) {
	path := writeConfig(t, "modules.yaml", syncConfig)

	_, err := executeSync(t, "text", path, "users", "read", "--db", ":memory:", "--endpoint", "http://localhost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestSyncDatabaseFromConfig(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data.db")
	path := writeConfig(t, "modules.yaml", "database: "+dbPath+"\n"+syncConfig)

	_, err := executeSync(t, "json", path, "users", "create", `{"id":"u1","name":"Ada"}`)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	recs, err := st.Records("users", "id").List(t.Context())
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSyncLargeIntegerID(t *testing.T) {
	path := writeConfig(t, "modules.yaml", `modules:
  - key: accounts
    shape: map
    verbs: [read, create, delete]
`)
	dbPath := filepath.Join(t.TempDir(), "data.db")

	buf, err := executeSync(t, "json", path, "accounts", "create", `{"id":9007199254740993,"owner":"Ada"}`, "--db", dbPath)
	require.NoError(t, err, buf.String())

	created := decodeSync(t, buf)
	assert.Contains(t, created.Data.State["data"], "9007199254740993", "map key keeps every digit")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	recs, err := st.Records("accounts", "id").List(t.Context())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, ir.IRInt(9007199254740993), recs[0]["id"])
	require.NoError(t, st.Close())

	buf, err = executeSync(t, "json", path, "accounts", "delete", "9007199254740993", "--db", dbPath)
	require.NoError(t, err, buf.String())
	assert.Equal(t, []string{"ACCOUNTS/DELETE_START", "ACCOUNTS/DELETE_SUCCESS"}, decodeSync(t, buf).Data.Events)

	st, err = store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	recs, err = st.Records("accounts", "id").List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseJSONArgKeepsIntegers(t *testing.T) {
	v, err := parseJSONArg("9007199254740993")
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(9007199254740993), v)

	key, err := ir.KeyOf(v)
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", key)

	_, err = parseJSONArg(`{"id":1} trailing`)
	assert.Error(t, err)
}
