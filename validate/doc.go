// Package validate provides static screening of untrusted Python scripts.
//
// The validate package parses a script with Tree-sitter and walks the
// resulting syntax tree once, flagging denylisted calls, imports,
// attribute accesses and bare name references, checking for the required
// top-level main() entry point, and enforcing size and complexity limits.
//
// Validation is denylist-based static analysis. It cheaply rejects the
// common escape patterns before any backend is invoked, but it is not a
// capability system and must never be treated as a substitute for
// process-level isolation.
//
// Usage:
//
//	v := validate.New(validate.DefaultRules())
//	res := v.Validate(script)
//	if !res.Accepted() {
//	    fmt.Println(res.Summary())
//	}
package validate
