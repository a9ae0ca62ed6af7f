// Package platform models conda-convention platform tags and the fixed
// predicate namespace used by descriptor selectors.
package platform

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Platform is a platform tag in conda convention, e.g. "linux-64".
type Platform string

const (
	Win32        Platform = "win-32"
	Win64        Platform = "win-64"
	Linux32      Platform = "linux-32"
	Linux64      Platform = "linux-64"
	LinuxAarch64 Platform = "linux-aarch64"
	Osx32        Platform = "osx-32"
	Osx64        Platform = "osx-64"
	OsxArm64     Platform = "osx-arm64"
)

var known = map[Platform]bool{
	Win32:        true,
	Win64:        true,
	Linux32:      true,
	Linux64:      true,
	LinuxAarch64: true,
	Osx32:        true,
	Osx64:        true,
	OsxArm64:     true,
}

// Parse validates a platform tag.
func Parse(s string) (Platform, error) {
	p := Platform(s)
	if !known[p] {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// Current returns the platform tag of the running process.
func Current() Platform {
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "386" {
			return Win32
		}
		return Win64
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return OsxArm64
		}
		return Osx64
	default:
		switch runtime.GOARCH {
		case "386":
			return Linux32
		case "arm64":
			return LinuxAarch64
		}
		return Linux64
	}
}

// OS returns the conda OS name part of the tag: "win", "linux" or "osx".
func (p Platform) OS() string {
	name, _, _ := strings.Cut(string(p), "-")
	return name
}

// Arch returns the architecture part of the tag, e.g. "64" or "aarch64".
func (p Platform) Arch() string {
	_, arch, _ := strings.Cut(string(p), "-")
	return arch
}

// Bits returns the pointer width implied by the tag.
func (p Platform) Bits() int {
	if n, err := strconv.Atoi(p.Arch()); err == nil {
		return n
	}
	// aarch64 and arm64 are 64-bit.
	return 64
}

// Selectors returns the predicate namespace for selector expressions and
// template rendering on this platform. The is_included predicate reflects
// whether the descriptor being processed was reached through an include.
func (p Platform) Selectors(isIncluded bool) map[string]any {
	name := p.OS()
	bits := p.Bits()
	arch := p.Arch()
	// The 64-bit OS predicates mean x86-64, like x86_64 itself; the ARM
	// tags answer only to aarch64/arm64.
	return map[string]any{
		"linux":       name == "linux",
		"linux32":     name == "linux" && bits == 32,
		"linux64":     name == "linux" && arch == "64",
		"osx":         name == "osx",
		"osx32":       name == "osx" && bits == 32,
		"osx64":       name == "osx" && arch == "64",
		"unix":        name == "linux" || name == "osx",
		"win":         name == "win",
		"win32":       name == "win" && bits == 32,
		"win64":       name == "win" && arch == "64",
		"x86":         bits == 32,
		"x86_64":      arch == "64",
		"aarch64":     arch == "aarch64",
		"arm64":       arch == "arm64",
		"is_included": isIncluded,
	}
}

// PathSeparator returns the separator used to join path-like environment
// variable lists on this platform family.
func (p Platform) PathSeparator() string {
	if p.OS() == "win" {
		return ";"
	}
	return ":"
}
