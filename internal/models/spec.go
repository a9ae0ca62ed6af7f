package models

import (
	"regexp"
	"strings"
)

// DependencySpec is a single package requirement declared by a descriptor.
// It has two shapes: a plain spec string (e.g. "pytest >7"), or a nested
// pip block carrying its own ordered requirement strings.
type DependencySpec struct {
	Spec string
	Pip  []string

	// File is the path of the descriptor that declared this spec.
	File string
}

// IsPip reports whether this spec is a nested pip block.
func (d DependencySpec) IsPip() bool { return d.Pip != nil }

// PackageSpec is a parsed package specifier as declared in a dependencies
// section, e.g. "conda-forge::pytest >=7, !=7.1.1". Channel and Version
// may be empty.
type PackageSpec struct {
	Channel string // includes the trailing "::" when present
	Name    string
	Version string
}

// Package naming convention from
// https://conda.io/docs/building/pkg-name-conv.html
var packagePattern = regexp.MustCompile(
	`^(?i)(?:(?P<channel>[a-z0-9_\-/.]+::))?(?P<package>[a-z0-9_\-.]+)\s*(?P<version>.*)$`,
)

// ParsePackageSpec splits a plain spec string into channel, name and
// version parts.
func ParsePackageSpec(specifier string) (PackageSpec, error) {
	m := packagePattern.FindStringSubmatch(specifier)
	if m == nil {
		return PackageSpec{}, &specError{specifier: specifier}
	}
	return PackageSpec{
		Channel: m[packagePattern.SubexpIndex("channel")],
		Name:    m[packagePattern.SubexpIndex("package")],
		Version: strings.TrimSpace(m[packagePattern.SubexpIndex("version")]),
	}, nil
}

// Identity is the merge/conflict identity of the package: channel plus
// name, case-insensitive.
func (p PackageSpec) Identity() string {
	return strings.ToLower(p.Channel + p.Name)
}

type specError struct {
	specifier string
}

func (e *specError) Error() string {
	return "the package version specification \"" + e.specifier + "\" does not follow the expected format"
}
