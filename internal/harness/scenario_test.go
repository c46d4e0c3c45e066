package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: smallest valid scenario
module:
  key: users
steps:
  - call: read
assertions:
  - type: trace_count
    event: readStart
    count: 1
`

func TestLoadScenario_Files(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Name)
			assert.NotEmpty(t, s.Steps)
		})
	}
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, "users", s.Module.Key)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, "read", s.Steps[0].Call)
	assert.Equal(t, AssertTraceCount, s.Assertions[0].Type)
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "assertion: []\n"))
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nmodule: {key: users}\nsteps: [{call: read}]\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nmodule: {key: users}\nsteps: [{call: read}]\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "description is required",
		},
		{
			name:    "module without key",
			yaml:    "name: n\ndescription: d\nsteps: [{call: read}]\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "module key is required",
		},
		{
			name:    "bad module shape",
			yaml:    "name: n\ndescription: d\nmodule: {key: users, shape: tree}\nsteps: [{call: read}]\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "unknown collection shape",
		},
		{
			name:    "bad start",
			yaml:    "name: n\ndescription: d\nstart: yesterday\nmodule: {key: users}\nsteps: [{call: read}]\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "start",
		},
		{
			name:    "unknown service verb",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nservices: {fetch: []}\nsteps: [{call: read}]\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "unknown verb \"fetch\"",
		},
		{
			name:    "no steps",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "steps list is required",
		},
		{
			name:    "step with two actions",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{call: read, advance: 1s}]\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "exactly one of call, dispatch, advance",
		},
		{
			name:    "empty step",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{}]\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "exactly one of call, dispatch, advance",
		},
		{
			name:    "bad advance",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{advance: soon}]\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "steps[0].advance",
		},
		{
			name:    "negative advance",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{advance: -1s}]\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "must not be negative",
		},
		{
			name:    "dispatch without type",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{dispatch: {payload: 1}}]\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "dispatch: type is required",
		},
		{
			name:    "expect on advance",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{advance: 1s, expect: {error: x}}]\nassertions: [{type: trace_count, event: x}]\n",
			wantErr: "apply only to call",
		},
		{
			name:    "no assertions",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{call: read}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "assertion without type",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{call: read}]\nassertions: [{event: x}]\n",
			wantErr: "type is required",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{call: read}]\nassertions: [{type: table_rows}]\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "trace_contains without event",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{call: read}]\nassertions: [{type: trace_contains}]\n",
			wantErr: "event is required for trace_contains",
		},
		{
			name:    "trace_order without events",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{call: read}]\nassertions: [{type: trace_order}]\n",
			wantErr: "events list is required",
		},
		{
			name:    "negative trace_count",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{call: read}]\nassertions: [{type: trace_count, event: x, count: -1}]\n",
			wantErr: "count must be non-negative",
		},
		{
			name:    "final_state without expect",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{call: read}]\nassertions: [{type: final_state}]\n",
			wantErr: "expect object is required",
		},
		{
			name:    "view without name",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{call: read}]\nassertions: [{type: view, expect: 1}]\n",
			wantErr: "view is required",
		},
		{
			name:    "service_calls with bad verb",
			yaml:    "name: n\ndescription: d\nmodule: {key: users}\nsteps: [{call: read}]\nassertions: [{type: service_calls, verb: fetch}]\n",
			wantErr: "unknown verb \"fetch\" for service_calls",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
