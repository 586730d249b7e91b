// Package navigation models full-page redirects as a capability.
//
// Components call Navigate at their decision points; the HTTP layer enacts
// the recorded target once the component returned.
package navigation

import (
	"context"
	"sync"
)

type Navigator interface {
	Navigate(target string)
}

// Recorder remembers the last navigation target. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	target string
	count  int
}

func (r *Recorder) Navigate(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.target = target
	r.count++
}

// Target returns the last target and whether any navigation happened.
func (r *Recorder) Target() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.target, r.count > 0
}

// Count returns how many navigations were recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.count
}

type ctxKey struct{}

// NewContext returns a context carrying n.
func NewContext(ctx context.Context, n Navigator) context.Context {
	return context.WithValue(ctx, ctxKey{}, n)
}

// FromContext returns the navigator of ctx or a no-op navigator.
func FromContext(ctx context.Context) Navigator {
	if n, ok := ctx.Value(ctxKey{}).(Navigator); ok {
		return n
	}

	return discard{}
}

type discard struct{}

func (discard) Navigate(string) {}
