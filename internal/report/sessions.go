package report

import (
	"errors"
	"strings"
	"sync"
)

var (
	ErrSessionExists   = errors.New("report session already active for target")
	ErrSessionNotFound = errors.New("report session not found")
)

// Registry holds the active report session per target. Keys are
// case-insensitive: at most one session may exist per lower-cased target name.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Context
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Context)}
}

// Admit inserts the context unless a session for the same target is already
// active. Check and insert happen atomically; on conflict the existing
// context is returned so callers can name the current reporter.
func (r *Registry) Admit(c *Context) (*Context, error) {
	key := strings.ToLower(c.TargetName)
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[key]; ok {
		return existing, ErrSessionExists
	}
	r.sessions[key] = c
	return nil, nil
}

func (r *Registry) Has(target string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[strings.ToLower(target)]
	return ok
}

func (r *Registry) Get(target string) (*Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[strings.ToLower(target)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Put overwrites any existing session. Admission goes through Admit; Put
// exists for completeness and tests.
func (r *Registry) Put(target string, c *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[strings.ToLower(target)] = c
}

func (r *Registry) Remove(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, strings.ToLower(target))
}
