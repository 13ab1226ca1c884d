package platforms

import (
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
)

// Factory constructs a platform adapter. Factories run once at registration
// so capability mismatches surface at load rather than at first use.
type Factory func() (Platform, error)

// Entry describes one registered platform.
type Entry struct {
	Key         string
	DisplayName string
	Kind        Kind
	platform    Platform
}

// Registry is the process-wide platform table. It is populated during app
// initialization and read-only afterwards, so lookups need no locking.
type Registry struct {
	entries map[string]*Entry
	sealed  bool
	logger  arbor.ILogger
}

// NewRegistry creates an empty platform registry
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		logger:  logger,
	}
}

// Register instantiates the factory and validates that the produced adapter
// exposes the capability set its claimed kind requires.
func (r *Registry) Register(key, displayName string, kind Kind, factory Factory) error {
	if r.sealed {
		return fmt.Errorf("platform registry is sealed")
	}
	if key == "" {
		return fmt.Errorf("platform key is required")
	}
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("platform %q already registered", key)
	}

	platform, err := factory()
	if err != nil {
		return fmt.Errorf("platform %q factory failed: %w", key, err)
	}

	switch kind {
	case KindBrowser:
		if _, ok := platform.(BrowserPlatform); !ok {
			return fmt.Errorf("platform %q claims kind=browser but does not implement the browser capability set", key)
		}
	case KindAPI:
		if _, ok := platform.(APIPlatform); !ok {
			return fmt.Errorf("platform %q claims kind=api but does not implement the api capability set", key)
		}
	default:
		return fmt.Errorf("platform %q has unknown kind %q", key, kind)
	}

	r.entries[key] = &Entry{
		Key:         key,
		DisplayName: displayName,
		Kind:        kind,
		platform:    platform,
	}

	r.logger.Debug().
		Str("platform", key).
		Str("kind", string(kind)).
		Msg("Platform registered")
	return nil
}

// Seal marks the registry read-only. Call after all registrations.
func (r *Registry) Seal() {
	r.sealed = true
}

// Lookup returns the adapter for a platform key.
func (r *Registry) Lookup(key string) (Platform, error) {
	entry, ok := r.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, key)
	}
	return entry.platform, nil
}

// Entries returns all registered platforms sorted by key.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
