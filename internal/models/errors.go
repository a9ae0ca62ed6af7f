package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType identifies the category of error that occurred.
type ErrorType string

const (
	// Descriptor loading
	ErrParse ErrorType = "parse_error"
	ErrCycle ErrorType = "cycle_error"

	// Merge phase
	ErrMerge ErrorType = "merge_error"

	// Configuration and usage
	ErrConfig ErrorType = "config_error"

	// External package manager / locking tool
	ErrExternalTool ErrorType = "external_tool_error"

	// Catch-all
	ErrInternal ErrorType = "internal_error"
)

// Classify maps an error to its category for reporting at the CLI boundary.
func Classify(err error) ErrorType {
	var (
		parseErr  *ParseError
		cycleErr  *CycleError
		mergeErr  *MergeError
		configErr *ConfigError
		toolErr   *ExternalToolError
	)
	switch {
	case errors.As(err, &parseErr):
		return ErrParse
	case errors.As(err, &cycleErr):
		return ErrCycle
	case errors.As(err, &mergeErr):
		return ErrMerge
	case errors.As(err, &configErr):
		return ErrConfig
	case errors.As(err, &toolErr):
		return ErrExternalTool
	}
	return ErrInternal
}

// ParseError reports malformed structured input, with the file and, when
// known, the line it came from.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse error")
	if e.File != "" {
		fmt.Fprintf(&b, " in %s", e.File)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// CycleError reports an include cycle, naming the chain of files that
// closed the loop.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "include cycle detected: " + strings.Join(e.Chain, " -> ")
}

// MergeError reports an irreconcilable conflict between two descriptors:
// an overwrite collision, incompatible version pins, incompatible pip
// blocks, or an append/overwrite type mismatch.
type MergeError struct {
	Subject string // the variable or package in conflict
	FileA   string
	FileB   string
	Reason  string
}

func (e *MergeError) Error() string {
	msg := fmt.Sprintf("merge conflict on %q: %s", e.Subject, e.Reason)
	if e.FileA != "" && e.FileB != "" {
		msg += fmt.Sprintf(" (between %s and %s)", e.FileA, e.FileB)
	}
	return msg
}

// ConfigError reports a usage or configuration problem, with a remediation
// hint when one is known.
type ConfigError struct {
	Msg  string
	Hint string
}

func (e *ConfigError) Error() string {
	if e.Hint != "" {
		return e.Msg + " (" + e.Hint + ")"
	}
	return e.Msg
}

// ExternalToolError reports a non-zero exit from the package manager or
// locking tool. The tool's own output is streamed through verbatim, so the
// message only carries the command and exit code.
type ExternalToolError struct {
	Tool     string
	Args     []string
	ExitCode int
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("%s %s exited with code %d", e.Tool, strings.Join(e.Args, " "), e.ExitCode)
}
