package integration

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/pybox/executor"
	"github.com/isdmx/pybox/harness"
	"github.com/isdmx/pybox/sandbox"
	"github.com/isdmx/pybox/validate"
)

// requirePython skips the test when no python3 interpreter is available
func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available, skipping interpreter integration test")
	}
}

// newLocalPipeline builds an executor whose remote backend points at an
// unreachable endpoint, so every run exercises the fallback path against
// the real local interpreter.
func newLocalPipeline(t *testing.T) *executor.Executor {
	t.Helper()
	logger := zaptest.NewLogger(t)
	remote := sandbox.NewRemoteRunner(logger, "http://127.0.0.1:1/run", 2*time.Second)
	local := sandbox.NewLocalRunner(logger, "python3")
	return executor.New(logger, validate.New(validate.DefaultRules()), remote, local, 5*time.Second, 128)
}

func TestPipelineRoundTrip(t *testing.T) {
	requirePython(t)
	e := newLocalPipeline(t)

	resp := e.Execute(context.Background(), executor.Request{
		Script: "def main():\n    return {'answer': 42, 'items': [1, 2, 3]}\n",
	})

	require.Empty(t, resp.Error)
	assert.Equal(t, map[string]any{
		"answer": float64(42),
		"items":  []any{float64(1), float64(2), float64(3)},
	}, resp.Result)
}

func TestPipelinePrintedOutputInterleaves(t *testing.T) {
	requirePython(t)
	e := newLocalPipeline(t)

	resp := e.Execute(context.Background(), executor.Request{
		Script: "def main():\n    print('line one')\n    print('line two')\n    return 7\n",
	})

	require.Empty(t, resp.Error)
	assert.Equal(t, float64(7), resp.Result)
	assert.Equal(t, "line one\nline two", resp.Stdout)
}

func TestPipelineMarkerInUserOutput(t *testing.T) {
	requirePython(t)
	e := newLocalPipeline(t)

	// A script printing marker-prefixed text still yields the legitimate
	// return value, last marker wins
	resp := e.Execute(context.Background(), executor.Request{
		Script: "def main():\n    print('see " + harness.ResultMarker + " here')\n    return 9\n",
	})

	require.Empty(t, resp.Error)
	assert.Equal(t, float64(9), resp.Result)
	assert.Contains(t, resp.Stdout, harness.ResultMarker)
}

func TestPipelineUserException(t *testing.T) {
	requirePython(t)
	e := newLocalPipeline(t)

	resp := e.Execute(context.Background(), executor.Request{
		Script: "def main():\n    raise ValueError('kaboom')\n",
	})

	assert.Nil(t, resp.Result)
	assert.Contains(t, resp.Error, "ValueError: kaboom")
}

func TestPipelineTimeout(t *testing.T) {
	requirePython(t)
	e := newLocalPipeline(t)

	resp := e.Execute(context.Background(), executor.Request{
		Script:  "def main():\n    while True:\n        pass\n",
		Timeout: time.Second,
	})

	assert.Nil(t, resp.Result)
	assert.Contains(t, resp.Error, "timed out")
}

func TestPipelineNonSerializableResult(t *testing.T) {
	requirePython(t)
	e := newLocalPipeline(t)

	resp := e.Execute(context.Background(), executor.Request{
		Script: "def main():\n    return object()\n",
	})

	assert.Nil(t, resp.Result)
	assert.Contains(t, resp.Error, "not JSON-serializable")
}

func TestPipelineIdempotence(t *testing.T) {
	requirePython(t)
	e := newLocalPipeline(t)

	req := executor.Request{Script: "def main():\n    print('stable')\n    return [1, 'two']\n"}

	first := e.Execute(context.Background(), req)
	second := e.Execute(context.Background(), req)

	require.Empty(t, first.Error)
	assert.Equal(t, first.Result, second.Result)
	assert.Equal(t, first.Stdout, second.Stdout)
}

func TestPipelineValidationShortCircuits(t *testing.T) {
	// No interpreter needed: rejected scripts never reach a backend
	e := newLocalPipeline(t)

	resp := e.Execute(context.Background(), executor.Request{
		Script: "import subprocess\n\ndef main():\n    return 1\n",
	})

	assert.Nil(t, resp.Result)
	assert.Contains(t, resp.Error, "subprocess")
}
