// Package taxonomy implements the Taxonomy Registry (spec.md §4.1): the
// in-memory catalog of entity types consumed by every detector and the
// Replacement Engine. Generalizes the teacher's internal/parser/xml
// adapter-registry pattern (ordered dispatch, Detect-by-content) into a
// map-by-id CRUD registry with a durable, atomically-rewritten backing
// store.
package taxonomy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"

	"github.com/rezonia/pii-redactor/internal/config"
	"github.com/rezonia/pii-redactor/internal/model"
)

// Registry is the process-wide entity-type catalog.
type Registry struct {
	mu    sync.RWMutex
	types map[string]model.EntityTypeConfig
	store *config.Store[[]model.EntityTypeConfig]
}

// NewRegistry opens (or creates) a registry backed by path. On first run
// the store is empty and the registry seeds itself with the preset
// catalog; on subsequent runs the persisted catalog (presets + any user
// entries, with whatever `enabled`/edits the user made) is loaded as-is.
func NewRegistry(path string) (*Registry, error) {
	store, err := config.NewStore[[]model.EntityTypeConfig](path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy store: %w", err)
	}

	r := &Registry{store: store, types: map[string]model.EntityTypeConfig{}}

	persisted := store.Load()
	if len(persisted) == 0 {
		if err := r.Reset(); err != nil {
			return nil, err
		}
		return r, nil
	}

	for _, t := range persisted {
		r.types[t.ID] = t
	}
	return r, nil
}

func (r *Registry) persistLocked() error {
	list := make([]model.EntityTypeConfig, 0, len(r.types))
	for _, t := range r.types {
		list = append(list, t)
	}
	return r.store.Save(list)
}

// List returns the catalog sorted ascending by Order, ties broken by id.
// If enabledOnly is true, disabled entries are omitted.
func (r *Registry) List(enabledOnly bool) []model.EntityTypeConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.EntityTypeConfig, 0, len(r.types))
	for _, t := range r.types {
		if enabledOnly && !t.Enabled {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns a single entry by id.
func (r *Registry) Get(id string) (model.EntityTypeConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[id]
	if !ok {
		return model.EntityTypeConfig{}, model.NewNotFoundError("entity type %q not found", id)
	}
	return t, nil
}

// Create adds a user-defined entry with an auto-generated "custom_"
// prefixed id and order=200, per spec.md §4.1.
func (r *Registry) Create(t model.EntityTypeConfig) (model.EntityTypeConfig, error) {
	if t.Name == "" {
		return model.EntityTypeConfig{}, model.NewInvalidInputError("name is required")
	}
	if t.RegexPattern != "" {
		if _, err := regexp2.Compile(t.RegexPattern, regexp2.None); err != nil {
			return model.EntityTypeConfig{}, model.NewInvalidInputError("invalid regex_pattern: %v", err)
		}
	} else if !t.UseLLM {
		return model.EntityTypeConfig{}, model.NewInvalidInputError("use_llm must be true when regex_pattern is absent")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := "custom_" + slug(t.Name)
	base := id
	for i := 2; ; i++ {
		if _, exists := r.types[id]; !exists {
			break
		}
		id = fmt.Sprintf("%s_%d", base, i)
	}

	t.ID = id
	t.Preset = false
	t.Enabled = true
	t.Order = 200

	r.types[id] = t
	if err := r.persistLocked(); err != nil {
		return model.EntityTypeConfig{}, err
	}
	return t, nil
}

// Update applies a partial update. Preset entries may update everything
// except `id`; user entries may update everything.
func (r *Registry) Update(id string, patch func(*model.EntityTypeConfig)) (model.EntityTypeConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.types[id]
	if !ok {
		return model.EntityTypeConfig{}, model.NewNotFoundError("entity type %q not found", id)
	}

	before := t
	patch(&t)
	t.ID = before.ID
	t.Preset = before.Preset

	if t.RegexPattern != "" {
		if _, err := regexp2.Compile(t.RegexPattern, regexp2.None); err != nil {
			return model.EntityTypeConfig{}, model.NewInvalidInputError("invalid regex_pattern: %v", err)
		}
	} else if !t.UseLLM {
		return model.EntityTypeConfig{}, model.NewInvalidInputError("use_llm must be true when regex_pattern is absent")
	}

	r.types[id] = t
	if err := r.persistLocked(); err != nil {
		return model.EntityTypeConfig{}, err
	}
	return t, nil
}

// Toggle flips the Enabled flag.
func (r *Registry) Toggle(id string) (model.EntityTypeConfig, error) {
	return r.Update(id, func(t *model.EntityTypeConfig) {
		t.Enabled = !t.Enabled
	})
}

// Delete removes a user-created entry. Preset entries cannot be deleted
// (PresetProtected) — they may only be disabled via Toggle.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.types[id]
	if !ok {
		return model.NewNotFoundError("entity type %q not found", id)
	}
	if t.Preset {
		return model.NewPresetProtectedError("entity type %q is a preset and cannot be deleted", id)
	}

	delete(r.types, id)
	return r.persistLocked()
}

// Reset restores the preset catalog verbatim and drops every user entry.
func (r *Registry) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types = map[string]model.EntityTypeConfig{}
	for _, t := range LoadPresets() {
		r.types[t.ID] = t
	}
	return r.persistLocked()
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		return "type"
	}
	return out
}
