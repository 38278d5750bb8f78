package editor

// MaxDepth is the maximum number of EditStates retained in a History.
// Appending beyond the bound silently drops the oldest entry, so undo depth
// is capped at MaxDepth-1 steps.
const MaxDepth = 20

// Updater derives a new EditState from the current one. Updaters must not
// mutate shared data; they receive and return plain values.
type Updater func(EditState) EditState

// History is a bounded, linear undo/redo stack of EditStates with a cursor
// marking the current state. It is never empty: a History always holds at
// least the seed state, and the cursor always points at a valid index.
//
// Commit after undo discards the redo branch (standard linear-history
// semantics, no branching tree). Undo and redo only move the cursor; they
// never mutate stored states.
type History struct {
	states []EditState
	cursor int
}

// NewHistory creates a History seeded with the given state.
func NewHistory(seed EditState) *History {
	return &History{
		states: []EditState{seed.normalize()},
		cursor: 0,
	}
}

// Current returns the state at the cursor.
func (h *History) Current() EditState {
	return h.states[h.cursor]
}

// Len returns the number of retained states.
func (h *History) Len() int {
	return len(h.states)
}

// CanUndo reports whether an older state exists.
func (h *History) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo reports whether an undone state can be restored.
func (h *History) CanRedo() bool {
	return h.cursor < len(h.states)-1
}

// Commit applies update to the current state and appends the result.
//
// With overwrite false, redo entries beyond the cursor are discarded and the
// new state is appended after the current one. With overwrite true, the
// current entry is dropped as well before appending, collapsing a multi-step
// gesture (one brush stroke, many intermediate drafts) into a single entry.
//
// If the append exceeds MaxDepth the oldest entry is dropped. The cursor
// always lands on the new state. Commit returns the committed state.
func (h *History) Commit(update Updater, overwrite bool) EditState {
	next := update(h.Current()).normalize()

	keep := h.cursor + 1
	if overwrite {
		keep = h.cursor
	}
	h.states = append(h.states[:keep:keep], next)

	if len(h.states) > MaxDepth {
		h.states = h.states[1:]
	}
	h.cursor = len(h.states) - 1
	return next
}

// Undo moves the cursor one step back. It is a no-op at the oldest state.
func (h *History) Undo() {
	if h.CanUndo() {
		h.cursor--
	}
}

// Redo moves the cursor one step forward. It is a no-op at the newest state.
func (h *History) Redo() {
	if h.CanRedo() {
		h.cursor++
	}
}

// Reset replaces the entire history with a fresh seed state.
func (h *History) Reset(seed EditState) {
	h.states = []EditState{seed.normalize()}
	h.cursor = 0
}

// Refs appends every image and mask handle referenced by any retained state
// to dst and returns it. The result is the reachability set the image store
// must keep alive.
func (h *History) Refs(dst []string) []string {
	for _, s := range h.states {
		if s.ImageRef != "" {
			dst = append(dst, s.ImageRef)
		}
		if s.MaskRef != "" {
			dst = append(dst, s.MaskRef)
		}
	}
	return dst
}
