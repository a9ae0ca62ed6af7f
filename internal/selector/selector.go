// Package selector implements the inline conditional directives that gate
// whether a descriptor line participates in parsing. A trailing
// "# [expression]" on a list entry is evaluated against the fixed platform
// predicate namespace; lines whose expression is false are dropped before
// structured parsing. Evaluation is a pure function so the merge engine
// never depends on it.
package selector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
)

var directivePattern = regexp.MustCompile(`.*?#\s*\[(.*)\].*`)

// Evaluate compiles and runs a boolean selector expression against the
// given predicate namespace. Unknown identifiers and non-boolean results
// are errors.
func Evaluate(expression string, ns map[string]any) (bool, error) {
	prog, err := expr.Compile(expression, expr.Env(ns), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compiling selector [%s]: %w", expression, err)
	}
	out, err := expr.Run(prog, ns)
	if err != nil {
		return false, fmt.Errorf("evaluating selector [%s]: %w", expression, err)
	}
	return out.(bool), nil
}

// FilterLines applies selector directives line by line: lines without a
// directive pass through untouched, lines whose directive evaluates true
// are kept verbatim (the directive itself is a comment to the YAML
// parser), and lines whose directive evaluates false are dropped. The
// returned line number is 1-based and identifies the offending line when
// an expression is malformed.
func FilterLines(src string, ns map[string]any) (string, int, error) {
	lines := strings.Split(src, "\n")
	kept := lines[:0]
	for i, line := range lines {
		m := directivePattern.FindStringSubmatch(line)
		if m == nil {
			kept = append(kept, line)
			continue
		}
		ok, err := Evaluate(strings.TrimSpace(m[1]), ns)
		if err != nil {
			return "", i + 1, err
		}
		if ok {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n"), 0, nil
}
