package provider

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// Registry builds providers of type T by backend name.
type Registry[T Provider] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{factories: map[string]Factory[T]{}}
}

// RegisterFactory adds or replaces the factory for name.
func (r *Registry[T]) RegisterFactory(name string, f Factory[T]) {
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
}

// Create builds the backend called name from its settings.
func (r *Registry[T]) Create(name string, settings map[string]any) (T, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("no backend %q registered (have %v)", name, r.List())
	}
	return f(settings)
}

// List returns the registered names, sorted.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// DecodeConfig reads a settings map into C through its mapstructure tags.
// Strings are accepted for numbers, bools and durations, as environment
// overrides arrive as strings. Unknown keys are ignored.
func DecodeConfig[C any](settings map[string]any) (C, error) {
	var cfg C
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err == nil {
		err = dec.Decode(settings)
	}
	if err != nil {
		return cfg, fmt.Errorf("decode settings: %w", err)
	}
	return cfg, nil
}
