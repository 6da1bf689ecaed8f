package jobs

import "sync"

// Handler runs one claimed job to completion. Implementations must
// terminate the run through the Context (Succeed or Fail).
type Handler interface {
	Run(jc *Context)
}

// Registry maps job types to handlers. Registration happens during
// wiring, before the worker starts; lookups are read-mostly.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(jobType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = h
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}
