package blockv

import (
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Registry is the process-wide mapping from filesystem path to device,
// plus a secondary mapping from a network device's target string to the
// same device, so it can be resolved under either name.
type Registry struct {
	mu       sync.RWMutex
	byPath   map[string]Device
	byTarget map[string]*NetworkDevice
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byPath:   make(map[string]Device),
		byTarget: make(map[string]*NetworkDevice),
	}
}

// AddMemory registers a new, unsized memory device at path. Fails with
// ErrExists if path is already registered.
func (r *Registry) AddMemory(path string) (*MemoryDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPath[path]; ok {
		return nil, errors.Wrapf(ErrExists, "path %q", path)
	}

	d := NewMemoryDevice()
	r.byPath[path] = d
	return d, nil
}

// AddNetwork registers dev at path and, atomically with that insertion,
// under its target-alias key "/"+target. Fails with ErrExists if path is
// already registered.
func (r *Registry) AddNetwork(path string, dev *NetworkDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPath[path]; ok {
		return errors.Wrapf(ErrExists, "path %q", path)
	}

	r.byPath[path] = dev
	r.byTarget["/"+dev.Target()] = dev
	return nil
}

// Lookup resolves path against the primary map first, then the
// target-alias map.
func (r *Registry) Lookup(path string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.byPath[path]; ok {
		return d, true
	}
	if d, ok := r.byTarget[path]; ok {
		return d, true
	}
	return nil, false
}

// Exists reports whether path resolves to a registered device.
func (r *Registry) Exists(path string) bool {
	_, ok := r.Lookup(path)
	return ok
}

// Enumerate returns every primary-map path, sorted, for directory listing.
// A network device appears only under its linkpath here, never under its
// target-alias.
func (r *Registry) Enumerate() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.byPath))
	for p := range r.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Remove deletes path from the registry. For a network device this removes
// both the primary and target-alias entries.
func (r *Registry) Remove(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byPath[path]
	if !ok {
		return errors.Wrapf(ErrNotFound, "path %q", path)
	}

	delete(r.byPath, path)
	if nd, ok := d.(*NetworkDevice); ok {
		delete(r.byTarget, "/"+nd.Target())
	}
	return nil
}

// Close tears down every network device's connection, aggregating any
// close errors rather than stopping at the first.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	for path, d := range r.byPath {
		nd, ok := d.(*NetworkDevice)
		if !ok {
			continue
		}
		if err := nd.Close(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "closing %q", path))
		}
	}
	return result.ErrorOrNil()
}
