package stt

import (
	"fmt"
	"sort"
	"strings"

	"telegram-stt-bot/internal/domain/ports/adapter"
)

// Registry resolves a provider name to its Transcriber. Selection is static
// per deployment (the configured default), but Resolve takes a per-job
// override so a fallback chain stays a configuration extension rather than a
// pipeline change.
type Registry struct {
	defaultName string
	byName      map[string]adapter.Transcriber
}

func NewRegistry(defaultName string, backends ...adapter.Transcriber) (*Registry, error) {
	byName := make(map[string]adapter.Transcriber, len(backends))
	for _, b := range backends {
		byName[strings.ToLower(b.Name())] = b
	}
	defaultName = strings.ToLower(defaultName)
	if _, ok := byName[defaultName]; !ok {
		return nil, fmt.Errorf("stt: default provider %q not registered", defaultName)
	}
	return &Registry{defaultName: defaultName, byName: byName}, nil
}

func (r *Registry) DefaultName() string { return r.defaultName }

// Resolve returns the Transcriber for name, or the default when name is
// empty. Unknown names are an error, never a silent fallback.
func (r *Registry) Resolve(name string) (adapter.Transcriber, error) {
	if name == "" {
		name = r.defaultName
	}
	t, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("stt: unknown provider %q", name)
	}
	return t, nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
