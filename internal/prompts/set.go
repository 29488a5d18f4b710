// Package prompts loads the role-based prompt templates used by the
// translator. Each role has a system message file and a user prompt file;
// an "_improved" variant of either file takes precedence over the base one.
package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

//go:embed templates/*
var defaultsFS embed.FS

// ErrMissingRole is returned when neither the improved nor the base file of
// a role could be found.
var ErrMissingRole = errors.New("prompt role not configured")

// Role names a logical prompt pair.
type Role string

const (
	RoleGenerate Role = "generate"
	RoleUpdate   Role = "update"
	RoleQuestion Role = "question"
	RoleExplain  Role = "explain"
	RoleOptimize Role = "optimize"
	RoleDebug    Role = "debug"
)

// Roles lists every role the translator knows about.
var Roles = []Role{RoleGenerate, RoleUpdate, RoleQuestion, RoleExplain, RoleOptimize, RoleDebug}

const improvedSuffix = "_improved"

// Pair is the resolved system and user template of a role.
type Pair struct {
	System *Template
	User   *Template
}

// Set holds every template that could be resolved at load time. It is
// read-only after Load returns.
type Set struct {
	files map[string]*Template
}

// SystemFile returns the base file name of a role's system message.
func SystemFile(r Role) string { return "system_message_" + string(r) }

// UserFile returns the base file name of a role's user prompt.
func UserFile(r Role) string { return "prompt_" + string(r) }

// Default loads the templates embedded in the binary.
func Default() (*Set, error) {
	sub, err := fs.Sub(defaultsFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("opening embedded prompts: %w", err)
	}
	return Load(sub)
}

// LoadDir loads templates from dir, falling back to the embedded defaults
// for files dir does not provide. An empty dir means defaults only.
func LoadDir(dir string) (*Set, error) {
	sub, err := fs.Sub(defaultsFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("opening embedded prompts: %w", err)
	}
	if dir == "" {
		return Load(sub)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("prompts dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("prompts dir %s is not a directory", dir)
	}
	return Load(os.DirFS(dir), sub)
}

// Load resolves every role file from the given sources, earlier sources
// taking precedence. Within one source the improved variant wins over the
// base file. Files missing from every source are simply absent; a malformed
// template is an error.
func Load(sources ...fs.FS) (*Set, error) {
	s := &Set{files: make(map[string]*Template)}
	for _, r := range Roles {
		for _, base := range []string{SystemFile(r), UserFile(r)} {
			t, err := resolve(sources, base)
			if err != nil {
				return nil, err
			}
			if t != nil {
				s.files[base] = t
			}
		}
	}
	return s, nil
}

func resolve(sources []fs.FS, base string) (*Template, error) {
	for _, src := range sources {
		for _, name := range []string{base + improvedSuffix, base} {
			data, err := fs.ReadFile(src, name)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("reading prompt %s: %w", name, err)
			}
			return Parse(name, string(data))
		}
	}
	return nil, nil
}

// Role returns the templates for r, or an error wrapping ErrMissingRole.
func (s *Set) Role(r Role) (Pair, error) {
	sys, okSys := s.files[SystemFile(r)]
	usr, okUsr := s.files[UserFile(r)]
	switch {
	case !okSys && !okUsr:
		return Pair{}, fmt.Errorf("%w: %s", ErrMissingRole, r)
	case !okSys:
		return Pair{}, fmt.Errorf("%w: %s (no %s)", ErrMissingRole, r, SystemFile(r))
	case !okUsr:
		return Pair{}, fmt.Errorf("%w: %s (no %s)", ErrMissingRole, r, UserFile(r))
	}
	return Pair{System: sys, User: usr}, nil
}

// Has reports whether both files of r were resolved.
func (s *Set) Has(r Role) bool {
	_, err := s.Role(r)
	return err == nil
}

// Improved reports whether r resolved to an improved variant for either file.
func (s *Set) Improved(r Role) bool {
	for _, base := range []string{SystemFile(r), UserFile(r)} {
		if t, ok := s.files[base]; ok && t.Name() == base+improvedSuffix {
			return true
		}
	}
	return false
}
