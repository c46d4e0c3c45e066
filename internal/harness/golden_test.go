package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datamod/internal/ir"
)

func TestGoldenScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err)

		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestTraceSnapshot_Canonical(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "tiny",
		Trace: []TraceEvent{
			{Seq: 1, Type: "X/READ_START"},
			{Seq: 2, Type: "X/READ_SUCCESS", Payload: ir.Arr()},
		},
		Calls: []CallRecord{{Verb: "read"}, {Verb: "delete", Arg: ir.IRString("a")}},
	}

	data, err := snap.Canonical()
	require.NoError(t, err)

	assert.Equal(t,
		`{"calls":[{"verb":"read"},{"arg":"a","verb":"delete"}],"scenario_name":"tiny","state":{},"trace":[{"seq":1,"type":"X/READ_START"},{"payload":[],"seq":2,"type":"X/READ_SUCCESS"}]}`,
		string(data))
}
