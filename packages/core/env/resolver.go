package env

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/restfile/restfile/packages/builtin"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc receives diagnostics about placeholders that failed to resolve
// through a built-in generator.
type WarnFunc func(format string, args ...any)

// Resolver substitutes {{name}} placeholders. Request-local and file-scope
// maps are supplied per call; environment selection and session overrides
// live on the resolver and are safe for concurrent use.
type Resolver struct {
	mu        sync.RWMutex
	document  *Document
	selected  string
	overrides map[string]string
	funcs     *builtin.Registry
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		overrides: make(map[string]string),
		funcs:     builtin.NewRegistry(),
	}
}

// SetWarnFunc installs a callback for resolution warnings.
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

// LoadEnvironment reads, validates, and installs an environment document.
// Any previously selected environment name stays selected.
func (r *Resolver) LoadEnvironment(path string) error {
	doc, err := LoadEnvironmentFile(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.document = doc
	return nil
}

// SetEnvironment selects the active environment. The empty name deselects;
// any other name must exist in the loaded document.
func (r *Resolver) SetEnvironment(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		r.selected = ""
		return nil
	}
	if r.document == nil || !r.document.Has(name) {
		return fmt.Errorf("environment %q is not defined", name)
	}
	r.selected = name
	return nil
}

// Environment returns the currently selected environment name.
func (r *Resolver) Environment() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected
}

// SetVariable installs a session-level override consulted after file-scope
// variables and before the environment document.
func (r *Resolver) SetVariable(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[name] = value
}

// Resolve substitutes every {{name}} in text in a single left-to-right pass.
// Replacement values are never re-scanned. Lookup order per placeholder:
// built-in generator ($ sigil), request-local map, file-scope map, session
// overrides, selected environment, shared section. Placeholders that resolve
// nowhere stay as written.
func (r *Resolver) Resolve(text string, localVars, fileVars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])

		if strings.HasPrefix(name, "$") {
			if value, ok := r.funcs.Call(name); ok {
				return value
			}
			r.warn("unresolved builtin: %s", name)
			return match
		}

		if value, ok := localVars[name]; ok {
			return value
		}
		if value, ok := fileVars[name]; ok {
			return value
		}

		r.mu.RLock()
		defer r.mu.RUnlock()
		if value, ok := r.overrides[name]; ok {
			return value
		}
		if r.document != nil {
			if value, ok := r.document.Lookup(r.selected, name); ok {
				return value
			}
		}
		return match
	})
}
