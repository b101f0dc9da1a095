package camera

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"camstream/internal/supervisor"
)

// Repository is the single serialized access point for the camera registry.
// Every mutation persists the complete registry before it returns.
type Repository interface {
	// List returns the cameras in insertion order.
	List() []Camera

	// Get returns the camera with the given name.
	Get(name string) (Camera, bool)

	// Add appends a camera. Names are unique by their filesystem-safe stem,
	// because two cameras with the same stem would share output files.
	Add(cam Camera) (Camera, error)

	// SetStreamURL records the playback URL published for a camera.
	SetStreamURL(name, url string) error

	// ActiveCameraCount returns the number of cameras marked active.
	ActiveCameraCount() int
}

var (
	// ErrInvalidCamera is returned when a camera is missing a name or source.
	ErrInvalidCamera = errors.New("invalid camera")

	// ErrDuplicateCamera is returned when a camera with the same name (or the
	// same filesystem-safe stem) is already registered.
	ErrDuplicateCamera = errors.New("camera already exists")

	// ErrCameraNotFound is returned when no camera has the given name.
	ErrCameraNotFound = errors.New("camera not found")
)

// RegistryRepository is a concurrency-safe Repository backed by a Store. The
// whole read-modify-save sequence runs under one lock, so concurrent adds
// cannot overwrite each other.
type RegistryRepository struct {
	mu    sync.RWMutex
	store Store
	reg   Registry
}

// NewRepository loads the registry from store. A malformed registry is
// returned as an error wrapping ErrMalformedRegistry.
func NewRepository(store Store) (*RegistryRepository, error) {
	reg, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &RegistryRepository{store: store, reg: reg}, nil
}

// List implements Repository.List.
func (r *RegistryRepository) List() []Camera {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reg.Clone().Data
}

// Get implements Repository.Get.
func (r *RegistryRepository) Get(name string) (Camera, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexLocked(name); i >= 0 {
		return r.reg.Data[i], true
	}
	return Camera{}, false
}

// Add implements Repository.Add. If the snapshot cannot be saved the camera
// is not added.
func (r *RegistryRepository) Add(cam Camera) (Camera, error) {
	cam.Name = strings.TrimSpace(cam.Name)
	cam.SourceURL = strings.TrimSpace(cam.SourceURL)
	if cam.Name == "" {
		return Camera{}, fmt.Errorf("%w: cam_name is required", ErrInvalidCamera)
	}
	if cam.SourceURL == "" {
		return Camera{}, fmt.Errorf("%w: rtsp_url is required", ErrInvalidCamera)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stem := supervisor.SafeName(cam.Name)
	for _, existing := range r.reg.Data {
		if supervisor.SafeName(existing.Name) == stem {
			return Camera{}, fmt.Errorf("%w: %q conflicts with %q", ErrDuplicateCamera, cam.Name, existing.Name)
		}
	}

	next := r.reg.Clone()
	next.Data = append(next.Data, cam)
	if err := r.store.Save(next); err != nil {
		return Camera{}, fmt.Errorf("save camera registry: %w", err)
	}
	r.reg = next
	return cam, nil
}

// SetStreamURL implements Repository.SetStreamURL. The in-memory registry is
// updated even if persisting fails; the error is still returned.
func (r *RegistryRepository) SetStreamURL(name, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrCameraNotFound, name)
	}
	if r.reg.Data[i].StreamURL == url {
		return nil
	}
	r.reg.Data[i].StreamURL = url
	if err := r.store.Save(r.reg); err != nil {
		return fmt.Errorf("save camera registry: %w", err)
	}
	return nil
}

// ActiveCameraCount implements Repository.ActiveCameraCount.
func (r *RegistryRepository) ActiveCameraCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.reg.Data {
		if c.Active {
			n++
		}
	}
	return n
}

// indexLocked returns the position of the camera called name, matching the
// exact name first and the safe stem second. Caller must hold r.mu.
func (r *RegistryRepository) indexLocked(name string) int {
	for i, c := range r.reg.Data {
		if c.Name == name {
			return i
		}
	}
	stem := supervisor.SafeName(name)
	for i, c := range r.reg.Data {
		if supervisor.SafeName(c.Name) == stem {
			return i
		}
	}
	return -1
}
