package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/beacon/internal/domain"
)

// Registry is the exclusive owner of the name -> ServiceInstance mapping.
// Every operation goes through mu; queries hand out deep copies.
type Registry struct {
	mu         sync.RWMutex
	instances  map[string]*domain.ServiceInstance // name -> instance
	available  domain.Predicate
	endpoints  int       // total endpoints across all instances
	lastChange time.Time // last successful mutation
	now        func() time.Time
}

// New creates an empty registry. available is applied by QueryAvailable;
// nil falls back to domain.StatusPresent.
func New(available domain.Predicate) *Registry {
	if available == nil {
		available = domain.StatusPresent()
	}
	return &Registry{
		instances: make(map[string]*domain.ServiceInstance),
		available: available,
		now:       time.Now,
	}
}

// ─────────────────────────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────────────────────────

// Register adds an endpoint for connectionID under name. Malformed input
// (empty name or connection id, negative port) is dropped and false is
// returned.
//
// A second register for the same name and connection replaces the existing
// endpoint in place: the url is recomputed and the status cleared.
func (r *Registry) Register(name string, port int, protocol, connectionID, remoteAddr string) bool {
	if name == "" || port < 0 || connectionID == "" {
		return false
	}
	ep := domain.Endpoint{
		ConnectionID: connectionID,
		URL:          domain.BuildURL(protocol, remoteAddr, port),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[name]
	if !ok {
		r.instances[name] = &domain.ServiceInstance{Name: name, Endpoints: []domain.Endpoint{ep}}
		r.endpoints++
		r.touch()
		return true
	}

	if i := indexOf(inst.Endpoints, connectionID); i >= 0 {
		inst.Endpoints[i] = ep
		r.touch()
		return true
	}

	inst.Endpoints = append(inst.Endpoints, ep)
	r.endpoints++
	r.touch()
	return true
}

// UpdateStatus overwrites the status of the endpoint owned by connectionID
// under name. Unknown name or connection is a no-op and returns false.
func (r *Registry) UpdateStatus(name, connectionID string, status domain.Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[name]
	if !ok {
		return false
	}
	i := indexOf(inst.Endpoints, connectionID)
	if i < 0 {
		return false
	}
	inst.Endpoints[i].Status = status
	r.touch()
	return true
}

// Unregister removes the endpoint owned by connectionID under name, and the
// instance itself once it has no endpoint left. Idempotent.
func (r *Registry) Unregister(name, connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[name]
	if !ok {
		return false
	}
	if !r.removeLocked(inst, connectionID) {
		return false
	}
	r.touch()
	return true
}

// UnregisterConnection removes every endpoint owned by connectionID across
// all names. It returns the number of endpoints removed.
func (r *Registry) UnregisterConnection(connectionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, inst := range r.instances {
		if r.removeLocked(inst, connectionID) {
			removed++
		}
	}
	if removed > 0 {
		r.touch()
	}
	return removed
}

// removeLocked drops the endpoint and, if it was the last one, the instance.
// Caller holds mu.
func (r *Registry) removeLocked(inst *domain.ServiceInstance, connectionID string) bool {
	i := indexOf(inst.Endpoints, connectionID)
	if i < 0 {
		return false
	}
	inst.Endpoints = append(inst.Endpoints[:i], inst.Endpoints[i+1:]...)
	r.endpoints--
	if len(inst.Endpoints) == 0 {
		delete(r.instances, inst.Name)
	}
	return true
}

func (r *Registry) touch() { r.lastChange = r.now() }

func indexOf(eps []domain.Endpoint, connectionID string) int {
	for i := range eps {
		if eps[i].ConnectionID == connectionID {
			return i
		}
	}
	return -1
}

// ─────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────

// ListAll returns a snapshot of every instance, sorted by name. Endpoints keep
// their registration order.
func (r *Registry) ListAll() []domain.ServiceInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ServiceInstance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// QueryAvailable returns the endpoints of name accepted by the registry's
// predicate, in registration order. Unknown names yield an empty slice.
func (r *Registry) QueryAvailable(name string) []domain.Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Endpoint{}
	inst, ok := r.instances[name]
	if !ok {
		return out
	}
	for _, ep := range inst.Endpoints {
		if r.available.Evaluate(ep.Status) {
			out = append(out, ep.Clone())
		}
	}
	return out
}

// Get returns a copy of a single instance.
func (r *Registry) Get(name string) (domain.ServiceInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[name]
	if !ok {
		return domain.ServiceInstance{}, false
	}
	return inst.Clone(), true
}

// ConnectionIDs returns the distinct connection ids currently owning at least
// one endpoint.
func (r *Registry) ConnectionIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, r.endpoints)
	ids := make([]string, 0, r.endpoints)
	for _, inst := range r.instances {
		for _, ep := range inst.Endpoints {
			if _, dup := seen[ep.ConnectionID]; dup {
				continue
			}
			seen[ep.ConnectionID] = struct{}{}
			ids = append(ids, ep.ConnectionID)
		}
	}
	return ids
}

// Count returns the number of instances and endpoints.
func (r *Registry) Count() (instances, endpoints int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.instances), r.endpoints
}

// LastChange returns the time of the last successful mutation.
func (r *Registry) LastChange() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastChange
}
