// Package imagestore holds the decoded images the engine passes around by
// opaque handle: the original source, every AI-rendered result, and every
// authored mask. Edit states reference pixels only through these handles,
// so history depth costs snapshots, not image copies.
//
// Lifetime follows reachability, not age: an image stays resident as long
// as any edit state in any session's history (or overlay) still references
// it. Sessions report their reachable handle set after history mutations
// and the store releases everything else via Sweep.
package imagestore

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"sync"

	"github.com/google/uuid"
)

const (
	// MaxDimension is the maximum accepted width or height.
	MaxDimension = 8192
)

var (
	// ErrNotFound indicates the requested handle does not exist.
	ErrNotFound = errors.New("image not found")
	// ErrInvalidID indicates the handle is not a valid ID.
	ErrInvalidID = errors.New("invalid image ID")
	// ErrTooLarge indicates the image exceeds MaxDimension on a side.
	ErrTooLarge = errors.New("image exceeds maximum dimensions")
)

// entry holds decoded pixels plus a lazily cached PNG encoding.
type entry struct {
	img image.Image
	png []byte
}

// Store provides thread-safe in-memory image storage keyed by opaque IDs.
type Store struct {
	mu     sync.RWMutex
	images map[string]*entry
}

// New creates an empty store.
func New() *Store {
	return &Store{images: make(map[string]*entry)}
}

// Put registers a decoded image and returns its handle.
func (s *Store) Put(img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return "", errors.New("image has no pixels")
	}
	if b.Dx() > MaxDimension || b.Dy() > MaxDimension {
		return "", ErrTooLarge
	}

	id := uuid.New().String()

	s.mu.Lock()
	s.images[id] = &entry{img: img}
	s.mu.Unlock()

	return id, nil
}

// Image returns the decoded pixels for a handle.
func (s *Store) Image(id string) (image.Image, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.img, nil
}

// PNG returns the PNG encoding for a handle, encoding on first use and
// caching the result.
func (s *Store) PNG(id string) ([]byte, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e.png == nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, e.img); err != nil {
			return nil, err
		}
		e.png = buf.Bytes()
	}
	return e.png, nil
}

// Bounds returns the dimensions of a stored image.
func (s *Store) Bounds(id string) (width, height int, err error) {
	e, err := s.lookup(id)
	if err != nil {
		return 0, 0, err
	}
	b := e.img.Bounds()
	return b.Dx(), b.Dy(), nil
}

// Len returns the number of resident images.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// Sweep releases every image whose handle is not in reachable. It returns
// the number of images released. Handles referenced by any live edit state
// must be included; see Session.Refs.
func (s *Store) Sweep(reachable []string) int {
	keep := make(map[string]bool, len(reachable))
	for _, id := range reachable {
		keep[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	released := 0
	for id := range s.images {
		if !keep[id] {
			delete(s.images, id)
			released++
		}
	}
	return released
}

func (s *Store) lookup(id string) (*entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	e, ok := s.images[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}
