package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdmx/pybox/harness"
	"github.com/isdmx/pybox/sandbox"
)

func TestNormalizeResult(t *testing.T) {
	t.Run("DecodesMarkerPayload", func(t *testing.T) {
		raw := sandbox.RawResult{
			Stdout:     "hello\n" + harness.ResultMarker + `{"a": [1, 2]}` + "\n",
			ExitStatus: sandbox.StatusOK,
		}

		resp := Normalize(raw, 5*time.Second)
		assert.Empty(t, resp.Error)
		assert.Equal(t, map[string]any{"a": []any{float64(1), float64(2)}}, resp.Result)
		assert.Equal(t, "hello", resp.Stdout)
	})

	t.Run("NullResultIsExplicit", func(t *testing.T) {
		raw := sandbox.RawResult{Stdout: harness.ResultMarker + "null\n"}

		resp := Normalize(raw, 5*time.Second)
		assert.Empty(t, resp.Error)
		assert.Nil(t, resp.Result)
	})

	t.Run("LastMarkerWins", func(t *testing.T) {
		raw := sandbox.RawResult{
			Stdout: harness.ResultMarker + `"printed by user"` + "\n" +
				"ordinary line\n" +
				harness.ResultMarker + "42\n",
		}

		resp := Normalize(raw, 5*time.Second)
		assert.Empty(t, resp.Error)
		assert.Equal(t, float64(42), resp.Result)
		assert.Equal(t, "ordinary line", resp.Stdout)
	})

	t.Run("MarkerSubstringMidLinePreserved", func(t *testing.T) {
		raw := sandbox.RawResult{
			Stdout: "see " + harness.ResultMarker + " in the middle\n" +
				harness.ResultMarker + "7\n",
		}

		resp := Normalize(raw, 5*time.Second)
		assert.Equal(t, float64(7), resp.Result)
		// Only lines beginning with the marker are captured
		assert.Equal(t, "see "+harness.ResultMarker+" in the middle", resp.Stdout)
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		raw := sandbox.RawResult{Stdout: harness.ResultMarker + "{not json\n"}

		resp := Normalize(raw, 5*time.Second)
		assert.Nil(t, resp.Result)
		assert.Contains(t, resp.Error, "not valid JSON")
	})

	t.Run("SerializationFailurePayload", func(t *testing.T) {
		raw := sandbox.RawResult{
			Stdout:     harness.ResultMarker + `{"__error__": "Object of type object is not JSON serializable"}` + "\n",
			ExitStatus: sandbox.StatusNotSerializable,
		}

		resp := Normalize(raw, 5*time.Second)
		assert.Nil(t, resp.Result)
		assert.Contains(t, resp.Error, "not JSON-serializable")
		assert.Contains(t, resp.Error, "Object of type object")
	})

	t.Run("UserErrorShapedValueRoundTrips", func(t *testing.T) {
		raw := sandbox.RawResult{
			Stdout:     harness.ResultMarker + `{"__error__": "x"}` + "\n",
			ExitStatus: sandbox.StatusOK,
		}

		resp := Normalize(raw, 5*time.Second)
		assert.Empty(t, resp.Error)
		assert.Equal(t, map[string]any{"__error__": "x"}, resp.Result)
	})

	t.Run("UserObjectWithMoreFieldsIsNotAnError", func(t *testing.T) {
		raw := sandbox.RawResult{
			Stdout:     harness.ResultMarker + `{"__error__": "x", "other": 1}` + "\n",
			ExitStatus: sandbox.StatusNotSerializable,
		}

		resp := Normalize(raw, 5*time.Second)
		assert.Empty(t, resp.Error)
		require.NotNil(t, resp.Result)
	})
}

func TestNormalizeWithoutMarker(t *testing.T) {
	t.Run("StderrHasPriority", func(t *testing.T) {
		raw := sandbox.RawResult{
			Stdout:     "some output\n",
			Stderr:     "Traceback (most recent call last):\n  ...\nValueError: boom\n",
			ExitStatus: sandbox.StatusUserError,
		}

		resp := Normalize(raw, 5*time.Second)
		assert.Nil(t, resp.Result)
		assert.Contains(t, resp.Error, "ValueError: boom")
		assert.Equal(t, "some output", resp.Stdout)
	})

	t.Run("TimeoutSentinel", func(t *testing.T) {
		raw := sandbox.RawResult{ExitStatus: sandbox.StatusTimeout}

		resp := Normalize(raw, 5*time.Second)
		assert.Nil(t, resp.Result)
		assert.Equal(t, "Execution timed out after 5 seconds.", resp.Error)
	})

	t.Run("GenericExitStatus", func(t *testing.T) {
		raw := sandbox.RawResult{ExitStatus: 3}

		resp := Normalize(raw, 5*time.Second)
		assert.Equal(t, "Script did not produce a result (exit status 3).", resp.Error)
	})

	t.Run("WhitespaceStderrIgnored", func(t *testing.T) {
		raw := sandbox.RawResult{Stderr: "  \n", ExitStatus: sandbox.StatusTimeout}

		resp := Normalize(raw, 2*time.Second)
		assert.Equal(t, "Execution timed out after 2 seconds.", resp.Error)
	})
}
