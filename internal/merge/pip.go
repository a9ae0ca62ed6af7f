package merge

import (
	"strings"

	"github.com/devenv-tools/devenv/internal/models"
)

// pipSet accumulates nested pip blocks across descriptors. Requirement
// lists concatenate in traversal order with the same AND-merge of version
// fragments as plain specs. Entries under version control or carrying pip
// flags (e.g. "--editable path/to/pkg", "git+https://...") pass through
// untouched, identified by their whole string.
type pipSet struct {
	order   []string
	entries map[string]*depEntry
	file    string
	seen    bool
}

func newPipSet() *pipSet {
	return &pipSet{entries: make(map[string]*depEntry)}
}

func isPassthrough(req string) bool {
	return strings.Contains(req, "+") || strings.Contains(req, ":") || strings.HasPrefix(req, "-")
}

func (p *pipSet) add(spec models.DependencySpec) error {
	if !p.seen {
		p.seen = true
		p.file = spec.File
	}
	for _, req := range spec.Pip {
		if isPassthrough(req) {
			if _, ok := p.entries[req]; !ok {
				p.entries[req] = &depEntry{display: req, file: spec.File}
				p.order = append(p.order, req)
			}
			continue
		}
		pkg, err := models.ParsePackageSpec(req)
		if err != nil {
			return &models.ParseError{File: spec.File, Err: err}
		}
		identity := pkg.Identity()
		entry, ok := p.entries[identity]
		if !ok {
			entry = &depEntry{display: pkg.Channel + pkg.Name, file: spec.File}
			p.entries[identity] = entry
			p.order = append(p.order, identity)
		}
		if err := entry.addFragments(pkg.Version, spec.File); err != nil {
			return err
		}
	}
	return nil
}

// checkOverlap rejects a package requested both as a plain dependency and
// inside a pip block: the two installers cannot share one constraint.
func (p *pipSet) checkOverlap(deps *specSet) error {
	for _, identity := range p.order {
		if !deps.has(identity) {
			continue
		}
		return &models.MergeError{
			Subject: p.entries[identity].display,
			FileA:   deps.entries[identity].file,
			FileB:   p.entries[identity].file,
			Reason:  "declared both as a plain dependency and inside a pip block",
		}
	}
	return nil
}

// block renders the merged pip requirements as a single nested block, or
// nil when no descriptor declared one.
func (p *pipSet) block() *models.DependencySpec {
	if !p.seen {
		return nil
	}
	reqs := make([]string, 0, len(p.order))
	for _, identity := range p.order {
		reqs = append(reqs, p.entries[identity].spec())
	}
	return &models.DependencySpec{Pip: reqs, File: p.file}
}
