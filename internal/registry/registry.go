// Package registry maps stable dotted names to typed functions so that
// credential types can reference behavior by name.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidPath is returned for names that are not of the form "module.function_name".
type ErrInvalidPath struct{}

func (ErrInvalidPath) Error() string {
	return "Function path must be in format 'module.function_name'"
}

// ErrNotFound is returned when a well-formed name is not registered.
type ErrNotFound struct {
	Name string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("The function %s could not be found. Please provide a valid path", e.Name)
}

// Registry holds named functions of one kind.
type Registry[F any] struct {
	mu    sync.RWMutex
	funcs map[string]F
}

// New creates an empty registry.
func New[F any]() *Registry[F] {
	return &Registry[F]{funcs: make(map[string]F)}
}

// Register adds fn under name, replacing any previous entry.
// It panics on malformed names since registration happens at process start.
func (r *Registry[F]) Register(name string, fn F) {
	if err := checkPath(name); err != nil {
		panic(fmt.Sprintf("registry: %s: %v", name, err))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the function registered under name.
func (r *Registry[F]) Lookup(name string) (F, error) {
	var zero F
	if err := checkPath(name); err != nil {
		return zero, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return zero, ErrNotFound{Name: name}
	}
	return fn, nil
}

// Validate checks that name is well formed and registered.
func (r *Registry[F]) Validate(name string) error {
	_, err := r.Lookup(name)
	return err
}

// Names returns the registered names in sorted order.
func (r *Registry[F]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkPath(name string) error {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return ErrInvalidPath{}
	}
	return nil
}
