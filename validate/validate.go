package validate

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/isdmx/pybox/config"
)

// Kind classifies a validation issue
type Kind string

// Issue kinds reported by the validator
const (
	KindScriptEmpty         Kind = "script-empty"
	KindScriptTooLarge      Kind = "script-too-large"
	KindSyntaxInvalid       Kind = "syntax-invalid"
	KindMissingEntryPoint   Kind = "missing-entry-point"
	KindDisallowedCall      Kind = "disallowed-call"
	KindDisallowedImport    Kind = "disallowed-import"
	KindDisallowedAttribute Kind = "disallowed-attribute-access"
	KindDisallowedReference Kind = "disallowed-name-reference"
	KindTooManyDefinitions  Kind = "too-many-definitions"
)

// summaryLimit caps how many issues the rendered summary lists
const summaryLimit = 5

// Issue is a single validation finding with a human-readable detail
type Issue struct {
	Kind   Kind
	Detail string
}

// Result is the outcome of validating one script. An empty issue list
// means the script was accepted.
type Result struct {
	Issues []Issue
}

// Accepted reports whether the script passed validation
func (r Result) Accepted() bool {
	return len(r.Issues) == 0
}

// Summary renders the first issues as one caller-facing line. All issues
// remain available on the Result; only the rendering is truncated.
func (r Result) Summary() string {
	if len(r.Issues) == 0 {
		return ""
	}
	limit := len(r.Issues)
	if limit > summaryLimit {
		limit = summaryLimit
	}
	details := make([]string, 0, limit)
	for _, issue := range r.Issues[:limit] {
		details = append(details, issue.Detail)
	}
	return strings.Join(details, "; ")
}

// Rules holds the limits and denylists applied by a Validator. A Rules
// value is copied at construction and never mutated afterwards, so tests
// can supply alternate denylists without touching process-wide state.
type Rules struct {
	MaxScriptSize   int
	MaxFunctionDefs int
	// DeniedNames are flagged as direct calls and as import targets
	// (a module equal to or nested under a denied name is rejected).
	DeniedNames []string
	// DeniedAttributes are "object.attr" pairs flagged both when called
	// and when merely referenced.
	DeniedAttributes []string
	// DeniedReferences are names flagged even as bare references, since
	// they may be aliased and invoked indirectly.
	DeniedReferences []string
}

// DefaultRules returns the built-in limits and denylists
func DefaultRules() Rules {
	return Rules{
		MaxScriptSize:   200 * 1024,
		MaxFunctionDefs: 100,
		DeniedNames: []string{
			"eval", "exec", "compile", "__import__",
			"importlib", "ctypes", "ctypes.util",
			"subprocess", "socket", "multiprocessing", "threading",
			"os.system", "sys.modules",
		},
		DeniedAttributes: []string{
			"os.system", "os.popen", "os.execv", "os.execl", "sys.exec_prefix",
		},
		DeniedReferences: []string{"eval", "exec", "__import__"},
	}
}

// Validator statically screens Python scripts against a set of Rules.
//
// This is denylisting, not a capability system: it reduces but does not
// eliminate escape risk and is no substitute for process isolation.
type Validator struct {
	rules       Rules
	deniedNames map[string]bool
	deniedAttrs map[string]bool
	deniedRefs  map[string]bool
}

// New creates a Validator from the given rules
func New(rules Rules) *Validator {
	v := &Validator{
		rules:       rules,
		deniedNames: make(map[string]bool, len(rules.DeniedNames)),
		deniedAttrs: make(map[string]bool, len(rules.DeniedAttributes)),
		deniedRefs:  make(map[string]bool, len(rules.DeniedReferences)),
	}
	for _, name := range rules.DeniedNames {
		v.deniedNames[name] = true
	}
	for _, attr := range rules.DeniedAttributes {
		v.deniedAttrs[attr] = true
	}
	for _, ref := range rules.DeniedReferences {
		v.deniedRefs[ref] = true
	}
	return v
}

// NewFromConfig creates a Validator from the application configuration
func NewFromConfig(cfg *config.Config) *Validator {
	return New(Rules{
		MaxScriptSize:    cfg.Validator.MaxScriptSize,
		MaxFunctionDefs:  cfg.Validator.MaxFunctionDefs,
		DeniedNames:      cfg.Validator.DeniedNames,
		DeniedAttributes: cfg.Validator.DeniedAttributes,
		DeniedReferences: cfg.Validator.DeniedReferences,
	})
}

// issueCollector accumulates issues deduplicated by rendered text,
// preserving first-seen order.
type issueCollector struct {
	issues []Issue
	seen   map[string]bool
}

func newIssueCollector() *issueCollector {
	return &issueCollector{seen: make(map[string]bool)}
}

func (c *issueCollector) add(kind Kind, detail string) {
	if c.seen[detail] {
		return
	}
	c.seen[detail] = true
	c.issues = append(c.issues, Issue{Kind: kind, Detail: detail})
}

// Validate screens the script and returns all issues found in a single
// traversal. Only unparseable input short-circuits further checks.
func (v *Validator) Validate(script string) Result {
	collector := newIssueCollector()

	if strings.TrimSpace(script) == "" {
		collector.add(KindScriptEmpty, "Script must be a non-empty string.")
	}
	if len(script) > v.rules.MaxScriptSize {
		collector.add(KindScriptTooLarge, fmt.Sprintf("Script too large (>%d bytes).", v.rules.MaxScriptSize))
	}

	// Parser instances are not safe for concurrent use, so each call
	// builds its own.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	src := []byte(script)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		collector.add(KindSyntaxInvalid, "Script is syntactically invalid Python.")
		return Result{Issues: collector.issues}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		// No structural check is meaningful on a broken tree
		collector.add(KindSyntaxInvalid, "Script is syntactically invalid Python.")
		return Result{Issues: collector.issues}
	}

	if !hasTopLevelMain(root, src) {
		collector.add(KindMissingEntryPoint, "Script must define a top-level function named 'main()'.")
	}

	functionDefs := 0
	v.walk(root, src, collector, &functionDefs)

	if functionDefs > v.rules.MaxFunctionDefs {
		collector.add(KindTooManyDefinitions,
			fmt.Sprintf("Too many function definitions (%d > %d).", functionDefs, v.rules.MaxFunctionDefs))
	}

	return Result{Issues: collector.issues}
}

// hasTopLevelMain reports whether the module defines a top-level function
// named main, looking through decorators.
func hasTopLevelMain(root *sitter.Node, src []byte) bool {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		def := root.NamedChild(i)
		if def.Type() == "decorated_definition" {
			inner := def.ChildByFieldName("definition")
			if inner == nil {
				continue
			}
			def = inner
		}
		if def.Type() != "function_definition" {
			continue
		}
		if name := def.ChildByFieldName("name"); name != nil && nodeText(name, src) == "main" {
			return true
		}
	}
	return false
}

// walk visits every node of the tree once, flagging denylisted calls,
// imports, attribute accesses and bare references, and counting function
// definitions at any nesting depth.
func (v *Validator) walk(node *sitter.Node, src []byte, collector *issueCollector, functionDefs *int) {
	switch node.Type() {
	case "function_definition":
		*functionDefs++

	case "call":
		v.checkCall(node, src, collector)

	case "import_statement":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			target := node.NamedChild(i)
			if target.Type() == "aliased_import" {
				target = target.ChildByFieldName("name")
			}
			if target == nil || target.Type() != "dotted_name" {
				continue
			}
			module := nodeText(target, src)
			if v.isDeniedModule(module) {
				collector.add(KindDisallowedImport,
					fmt.Sprintf("Import of '%s' is disallowed or flagged as suspicious.", module))
			}
		}

	case "import_from_statement":
		if mod := node.ChildByFieldName("module_name"); mod != nil {
			module := nodeText(mod, src)
			if v.isDeniedModule(module) {
				collector.add(KindDisallowedImport,
					fmt.Sprintf("Import-from '%s' is disallowed or flagged as suspicious.", module))
			}
		}

	case "attribute":
		if obj, attr := attributePair(node); obj != nil && attr != nil {
			key := nodeText(obj, src) + "." + nodeText(attr, src)
			if v.deniedAttrs[key] {
				collector.add(KindDisallowedAttribute,
					fmt.Sprintf("Use of attribute '%s' is disallowed.", key))
			}
		}

	case "identifier":
		name := nodeText(node, src)
		if v.deniedRefs[name] && isBareReference(node) {
			collector.add(KindDisallowedReference,
				fmt.Sprintf("Reference to '%s' is disallowed.", name))
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		v.walk(node.NamedChild(i), src, collector, functionDefs)
	}
}

// checkCall flags calls to denylisted plain names and to denylisted
// object.attr pairs.
func (v *Validator) checkCall(node *sitter.Node, src []byte, collector *issueCollector) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}

	switch fn.Type() {
	case "identifier":
		name := nodeText(fn, src)
		if v.deniedNames[name] {
			collector.add(KindDisallowedCall,
				fmt.Sprintf("Use of '%s()' is disallowed for security reasons.", name))
		}
	case "attribute":
		if obj, attr := attributePair(fn); obj != nil && attr != nil {
			key := nodeText(obj, src) + "." + nodeText(attr, src)
			if v.deniedAttrs[key] {
				collector.add(KindDisallowedCall,
					fmt.Sprintf("Use of '%s()' is disallowed for security reasons.", key))
			}
		}
	}
}

// isDeniedModule reports whether the module equals a denied name or is
// nested under one.
func (v *Validator) isDeniedModule(module string) bool {
	if v.deniedNames[module] {
		return true
	}
	for name := range v.deniedNames {
		if strings.HasPrefix(module, name+".") {
			return true
		}
	}
	return false
}

// attributePair returns the object and attribute identifiers of an
// attribute node when the object is itself a plain identifier.
func attributePair(node *sitter.Node) (obj, attr *sitter.Node) {
	obj = node.ChildByFieldName("object")
	attr = node.ChildByFieldName("attribute")
	if obj == nil || attr == nil || obj.Type() != "identifier" {
		return nil, nil
	}
	return obj, attr
}

// isBareReference reports whether an identifier node is a value reference
// rather than a definition name, attribute name, parameter, keyword
// argument name, or import component.
func isBareReference(node *sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return true
	}

	switch parent.Type() {
	case "dotted_name", "parameters", "default_parameter", "typed_parameter", "aliased_import":
		return false
	case "attribute":
		if attr := parent.ChildByFieldName("attribute"); attr != nil && sameSpan(attr, node) {
			return false
		}
	case "function_definition", "class_definition", "keyword_argument":
		if name := parent.ChildByFieldName("name"); name != nil && sameSpan(name, node) {
			return false
		}
	}
	return true
}

// sameSpan reports whether two nodes cover the same source range
func sameSpan(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// nodeText returns the source text covered by a node
func nodeText(node *sitter.Node, src []byte) string {
	return string(src[node.StartByte():node.EndByte()])
}
