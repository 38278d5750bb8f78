// Package preset provides named, reusable edit recipes: an adjustment set
// plus per-band HSL shifts that can be applied to any session in one commit.
// Presets never reference pixels or masks, so a preset saved from one image
// applies cleanly to another.
package preset

import (
	"errors"
	"sort"
	"sync"

	"github.com/hurricanerix/darkroom/internal/editor"
)

var (
	// ErrNotFound indicates the named preset does not exist.
	ErrNotFound = errors.New("preset not found")

	// ErrEmptyName indicates a preset with no name was saved.
	ErrEmptyName = errors.New("preset name is empty")

	// ErrBuiltin indicates an attempt to overwrite or delete a built-in
	// preset.
	ErrBuiltin = errors.New("built-in presets are read-only")
)

// Preset is a named edit recipe.
type Preset struct {
	Name        string               `json:"name"`
	Adjustments editor.AdjustmentSet `json:"adjustments"`
	HSL         editor.HSLMix        `json:"hsl"`

	// Builtin presets ship with the application and cannot be modified.
	Builtin bool `json:"builtin,omitempty"`
}

// Store persists user presets. Implementations must be safe for concurrent
// use.
type Store interface {
	// List returns all presets, built-ins first, then user presets in
	// insertion order.
	List() ([]Preset, error)

	// Save stores a user preset, replacing any existing preset with the
	// same name. Returns ErrEmptyName or ErrBuiltin.
	Save(p Preset) error

	// Delete removes a user preset by name. Returns ErrNotFound or
	// ErrBuiltin.
	Delete(name string) error

	// Close releases the backing resources.
	Close() error
}

// Builtins returns the presets that ship with the editor.
func Builtins() []Preset {
	vintage := editor.DefaultAdjustments()
	vintage.Brightness = 110
	vintage.Contrast = 110
	vintage.Saturate = 90
	vintage.Sepia = 25

	cinematic := editor.DefaultAdjustments()
	cinematic.Contrast = 120
	cinematic.Saturate = 85

	var cinematicHSL editor.HSLMix
	cinematicHSL[editor.BandBlue] = editor.HSLShift{Saturation: -15, Lightness: -10}
	cinematicHSL[editor.BandOrange] = editor.HSLShift{Saturation: 5, Lightness: 5}

	return []Preset{
		{Name: "Vintage", Adjustments: vintage, Builtin: true},
		{Name: "Cinematic", Adjustments: cinematic, HSL: cinematicHSL, Builtin: true},
	}
}

// Apply returns an updater that replaces a state's adjustments and HSL mix
// with the preset's recipe. Image and mask handles are untouched.
func Apply(p Preset) editor.Updater {
	return func(st editor.EditState) editor.EditState {
		st = st.WithAdjustments(p.Adjustments)
		for b := editor.BandRed; b < editor.NumBands; b++ {
			st = st.WithHSL(b, p.HSL[b])
		}
		return st
	}
}

func isBuiltin(name string) bool {
	for _, b := range Builtins() {
		if b.Name == name {
			return true
		}
	}
	return false
}

// MemoryStore is an in-process Store used in tests and when no database
// path is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	presets map[string]Preset
	order   map[string]int
	next    int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		presets: make(map[string]Preset),
		order:   make(map[string]int),
	}
}

// List implements Store.
func (s *MemoryStore) List() ([]Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Builtins()
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return s.order[names[i]] < s.order[names[j]]
	})
	for _, name := range names {
		out = append(out, s.presets[name])
	}
	return out, nil
}

// Save implements Store.
func (s *MemoryStore) Save(p Preset) error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if isBuiltin(p.Name) {
		return ErrBuiltin
	}
	p.Builtin = false

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.presets[p.Name]; !ok {
		s.order[p.Name] = s.next
		s.next++
	}
	s.presets[p.Name] = p
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(name string) error {
	if isBuiltin(name) {
		return ErrBuiltin
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.presets[name]; !ok {
		return ErrNotFound
	}
	delete(s.presets, name)
	delete(s.order, name)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
