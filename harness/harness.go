package harness

import "fmt"

// ResultMarker prefixes the single stdout line carrying the structured
// return value. It is deliberately long and distinctive so ordinary user
// output is exceedingly unlikely to begin a line with it by accident. It
// is a fixed process-wide constant, not user-configurable.
const ResultMarker = "<<<__PY_RESULT__>>>"

// Exit statuses produced by the generated harness. They are distinct so a
// caller can tell an uncaught user exception from a non-serializable
// return value from the trace alone.
const (
	ExitUserError       = 1
	ExitNotSerializable = 2
)

// Build wraps an already-validated user script in the runner harness.
//
// The generated source embeds the script verbatim with its top-level
// main() callable, invokes it, and emits exactly one marker line on
// stdout carrying the JSON-encoded return value. User print output is
// never redirected; it interleaves with the marker line on stdout and is
// separated again downstream. On a user exception the harness prints the
// full traceback to stderr and exits with ExitUserError; on a
// non-serializable return value it still emits a marker line carrying an
// __error__ payload and exits with ExitNotSerializable.
func Build(script string) string {
	return fmt.Sprintf(`# coding: utf-8
import json, sys

_MARKER = %q

# --- user script ---
%s

# --- runner ---
def __run_and_emit_result():
    try:
        result = main()
    except Exception:
        import traceback
        traceback.print_exc(file=sys.stderr)
        sys.exit(%d)

    try:
        payload = json.dumps(result)
    except (TypeError, ValueError) as e:
        print(_MARKER + json.dumps({"__error__": str(e)}))
        sys.exit(%d)

    print(_MARKER + payload)

if __name__ == "__main__":
    __run_and_emit_result()
`, ResultMarker, script, ExitUserError, ExitNotSerializable)
}
