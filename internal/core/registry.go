package core

import (
	"context"
	"sort"
	"sync"

	"reval/internal/errors"
)

// Disposable releases something that was registered.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a plain function to Disposable.
type DisposableFunc func()

func (f DisposableFunc) Dispose() { f() }

// CompositeDisposable releases a group of disposables together.
type CompositeDisposable struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Add keeps d for the next Dispose. Adding to a disposed composite
// disposes d immediately.
func (c *CompositeDisposable) Add(d Disposable) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		d.Dispose()
		return
	}
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// Dispose releases every item in reverse order of addition. Later calls
// are no-ops.
func (c *CompositeDisposable) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	items := c.items
	c.items = nil
	c.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}

// Len returns the number of live items.
func (c *CompositeDisposable) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Handler runs one command against an editor.
type Handler func(ctx context.Context, editor ActiveEditor) error

type registration struct {
	handler Handler
}

// Registry maps command ids to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]*registration
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]*registration)}
}

// Add registers h under id and returns a Disposable that removes it again.
// Re-adding an id replaces the previous handler; disposing the older
// registration then leaves the newer one in place.
func (r *Registry) Add(id string, h Handler) Disposable {
	reg := &registration{handler: h}
	r.mu.Lock()
	r.handlers[id] = reg
	r.mu.Unlock()

	var once sync.Once
	return DisposableFunc(func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.handlers[id] == reg {
				delete(r.handlers, id)
			}
		})
	})
}

// Run executes the handler registered under id.
func (r *Registry) Run(ctx context.Context, id string, editor ActiveEditor) error {
	r.mu.RLock()
	reg, ok := r.handlers[id]
	r.mu.RUnlock()
	if !ok {
		return errors.Wrapf(errors.ErrUnknownCommand, "%s", id)
	}
	return reg.handler(ctx, editor)
}

// IDs returns the registered command ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
