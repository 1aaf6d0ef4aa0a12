package engine

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry holds loaded engine packs.
type Registry struct {
	sync.RWMutex
	packs        map[string]*Pack   // name -> pack
	byCapability map[string][]*Pack // capability -> packs
	logger       *zap.Logger
}

// NewRegistry creates an empty pack registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		packs:        make(map[string]*Pack),
		byCapability: make(map[string][]*Pack),
		logger:       logger.With(zap.String("component", "engine-registry")),
	}
}

// Register adds a pack. Names are unique.
func (r *Registry) Register(pack *Pack) error {
	r.Lock()
	defer r.Unlock()

	name := pack.Name()
	if _, exists := r.packs[name]; exists {
		return &PackAlreadyRegisteredError{PackName: name}
	}

	r.packs[name] = pack
	for _, c := range pack.Capabilities() {
		r.byCapability[c] = append(r.byCapability[c], pack)
	}

	r.logger.Info("Engine pack registered",
		zap.String("name", name),
		zap.Strings("capabilities", pack.Capabilities()),
	)

	return nil
}

// Get retrieves a pack by name.
func (r *Registry) Get(name string) (*Pack, bool) {
	r.RLock()
	defer r.RUnlock()

	pack, ok := r.packs[name]
	return pack, ok
}

// LookupByCapability returns the packs declaring capability, in
// registration order.
func (r *Registry) LookupByCapability(capability string) []*Pack {
	r.RLock()
	defer r.RUnlock()

	packs := r.byCapability[capability]
	result := make([]*Pack, len(packs))
	copy(result, packs)
	return result
}

// List returns every pack sorted by name.
func (r *Registry) List() []*Pack {
	r.RLock()
	defer r.RUnlock()

	result := make([]*Pack, 0, len(r.packs))
	for _, pack := range r.packs {
		result = append(result, pack)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// Unregister removes a pack.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	pack, ok := r.packs[name]
	if !ok {
		return
	}

	for _, c := range pack.Capabilities() {
		packs := r.byCapability[c]
		for i, p := range packs {
			if p == pack {
				r.byCapability[c] = append(packs[:i:i], packs[i+1:]...)
				break
			}
		}
		if len(r.byCapability[c]) == 0 {
			delete(r.byCapability, c)
		}
	}
	delete(r.packs, name)

	r.logger.Info("Engine pack unregistered", zap.String("name", name))
}

// Count returns the number of registered packs.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.packs)
}
