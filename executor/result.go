package executor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/isdmx/pybox/harness"
	"github.com/isdmx/pybox/sandbox"
)

// Normalize extracts the marker line from raw backend output and
// assembles the caller-facing response.
//
// Every stdout line beginning with the result marker is a candidate
// payload and the last one wins, since user code can print marker-
// prefixed text of its own. Marker lines are excluded from the printed
// stdout; all other lines are preserved in original order.
func Normalize(raw sandbox.RawResult, timeout time.Duration) Response {
	var payload string
	found := false

	lines := strings.Split(strings.TrimSuffix(raw.Stdout, "\n"), "\n")
	printed := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, harness.ResultMarker) {
			payload = line[len(harness.ResultMarker):]
			found = true
			continue
		}
		printed = append(printed, line)
	}
	stdout := strings.Join(printed, "\n")

	if !found {
		return Response{Stdout: stdout, Error: missingResultError(raw, timeout)}
	}

	var value any
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return Response{Stdout: stdout, Error: fmt.Sprintf("Returned value is not valid JSON: %v", err)}
	}

	// The harness emits a one-field __error__ object when the return
	// value could not be serialized, and only on the dedicated exit
	// status. Gating on the status keeps a script that legitimately
	// returns {"__error__": ...} from being misread; such a run exits 0.
	if raw.ExitStatus == sandbox.StatusNotSerializable {
		if obj, ok := value.(map[string]any); ok && len(obj) == 1 {
			if detail, ok := obj["__error__"]; ok {
				return Response{Stdout: stdout, Error: fmt.Sprintf("Result is not JSON-serializable: %v", detail)}
			}
		}
	}

	return Response{Result: value, Stdout: stdout}
}

// missingResultError derives the error text for a run that produced no
// marker line, in priority order: stderr, the timeout sentinel, then a
// generic exit-status message.
func missingResultError(raw sandbox.RawResult, timeout time.Duration) string {
	if strings.TrimSpace(raw.Stderr) != "" {
		return strings.TrimSpace(raw.Stderr)
	}
	if raw.ExitStatus == sandbox.StatusTimeout {
		return fmt.Sprintf("Execution timed out after %d seconds.", int(timeout.Seconds()))
	}
	return fmt.Sprintf("Script did not produce a result (exit status %d).", raw.ExitStatus)
}
