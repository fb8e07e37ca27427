// Package backend locates an invocable Serpent executable from a fixed
// priority list of candidates.
package backend

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// EnvCommand overrides all other candidates when set.
const EnvCommand = "FZ_SERPENT_CMD"

var ErrUnavailable = errors.New("no serpent backend available (tried sss2, serpent, /opt/serpent/bin/sss2, ~/serpent/bin/sss2); install Serpent or set " + EnvCommand)

// Candidate is either a bare command name resolved through PATH or a
// concrete file path probed for an execute bit. Exactly one field is set.
type Candidate struct {
	Name string
	Path string
}

// CandidateFor classifies a user-supplied backend spec: anything containing
// a path separator is probed as a path, everything else via PATH lookup.
func CandidateFor(spec string) Candidate {
	if strings.ContainsRune(spec, os.PathSeparator) {
		return Candidate{Path: spec}
	}
	return Candidate{Name: spec}
}

// Resolver probes candidates in priority order: the environment override,
// then configured extras, then the built-in defaults. LookPath, Getenv and
// Home are injectable so tests can model every candidate configuration.
type Resolver struct {
	LookPath func(file string) (string, error)
	Getenv   func(key string) string
	Home     string
	Extra    []Candidate
	Defaults []Candidate
}

func NewResolver() *Resolver {
	home, _ := os.UserHomeDir()
	return &Resolver{
		LookPath: exec.LookPath,
		Getenv:   os.Getenv,
		Home:     home,
		Defaults: DefaultCandidates(home),
	}
}

func DefaultCandidates(home string) []Candidate {
	return []Candidate{
		{Name: "sss2"},
		{Name: "serpent"},
		{Path: "/opt/serpent/bin/sss2"},
		{Path: filepath.Join(home, "serpent", "bin", "sss2")},
	}
}

func (r *Resolver) WithExtra(specs []string) *Resolver {
	for _, spec := range specs {
		if spec == "" {
			continue
		}
		r.Extra = append(r.Extra, CandidateFor(spec))
	}
	return r
}

func (r *Resolver) Candidates() []Candidate {
	candidates := make([]Candidate, 0, len(r.Extra)+len(r.Defaults)+1)
	if override := r.Getenv(EnvCommand); override != "" {
		candidates = append(candidates, CandidateFor(override))
	}
	candidates = append(candidates, r.Extra...)
	candidates = append(candidates, r.Defaults...)
	return candidates
}

// Resolve returns the command to execute for the first invocable candidate.
// No further candidates are probed after a match.
func (r *Resolver) Resolve() (string, error) {
	for _, candidate := range r.Candidates() {
		if candidate.Name != "" {
			if path, err := r.LookPath(candidate.Name); err == nil {
				return path, nil
			}
			continue
		}
		if isExecutable(candidate.Path) {
			return candidate.Path, nil
		}
	}
	return "", ErrUnavailable
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Mode()&0o111 != 0
}
