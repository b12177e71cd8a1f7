package scraper

import (
	"fmt"
	"sort"
	"sync"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Registry holds sites by name.
type Registry struct {
	mu    sync.RWMutex
	sites map[string]*Site
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sites: make(map[string]*Site)}
}

// Register adds a site after validating it.
func (r *Registry) Register(s *Site) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sites[s.Name]; exists {
		return fmt.Errorf("site %q already registered", s.Name)
	}
	r.sites[s.Name] = s
	return nil
}

// MustRegister is Register for built-in sites.
func (r *Registry) MustRegister(s *Site) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Get returns a site by name.
func (r *Registry) Get(name string) (*Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sites[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownSite, name)
	}
	return s, nil
}

// Names returns registered site names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sites))
	for n := range r.sites {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns every site, sorted by name.
func (r *Registry) All() []*Site {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Site, 0, len(names))
	for _, n := range names {
		out = append(out, r.sites[n])
	}
	return out
}
