package selector

import (
	"strings"
	"testing"

	"github.com/devenv-tools/devenv/internal/platform"
)

func TestEvaluate(t *testing.T) {
	ns := platform.Linux64.Selectors(false)
	cases := []struct {
		expr string
		want bool
	}{
		{"linux", true},
		{"win", false},
		{"unix", true},
		{"linux and x86_64", true},
		{"win or osx", false},
		{"not win", true},
		{"linux and not is_included", true},
	}
	for _, tc := range cases {
		got, err := Evaluate(tc.expr, ns)
		if err != nil {
			t.Fatalf("Evaluate(%q): %v", tc.expr, err)
		}
		if got != tc.want {
			t.Errorf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestEvaluateUnknownIdentifier(t *testing.T) {
	ns := platform.Linux64.Selectors(false)
	if _, err := Evaluate("freebsd", ns); err == nil {
		t.Fatal("expected error for unknown predicate")
	}
}

func TestFilterLines(t *testing.T) {
	src := strings.Join([]string{
		"dependencies:",
		"- numpy",
		"- pywin32      # [win]",
		"- gdb          # [linux]",
		"- clang        # [osx or win]",
	}, "\n")

	got, _, err := FilterLines(src, platform.Linux64.Selectors(false))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "pywin32") {
		t.Error("win-gated line survived on linux")
	}
	if strings.Contains(got, "clang") {
		t.Error("osx/win-gated line survived on linux")
	}
	if !strings.Contains(got, "- gdb          # [linux]") {
		t.Error("true-gated line must be kept verbatim")
	}
	if !strings.Contains(got, "- numpy") {
		t.Error("undirected line must pass through")
	}
}

func TestFilterLinesReportsLine(t *testing.T) {
	src := "dependencies:\n- numpy\n- broken  # [win and]"
	_, line, err := FilterLines(src, platform.Linux64.Selectors(false))
	if err == nil {
		t.Fatal("expected error for malformed expression")
	}
	if line != 3 {
		t.Errorf("line = %d, want 3", line)
	}
}

func TestFilterLinesPlainCommentUntouched(t *testing.T) {
	src := "# just a comment\n- numpy  # pinned for abi"
	got, _, err := FilterLines(src, platform.Linux64.Selectors(false))
	if err != nil {
		t.Fatal(err)
	}
	if got != src {
		t.Errorf("comments without directives must pass through, got %q", got)
	}
}
