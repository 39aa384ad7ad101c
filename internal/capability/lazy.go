// Package capability builds expensive model clients once per process.
package capability

import (
	"context"
	"sync"
)

// Lazy builds a T on first use and shares it afterwards. Unlike sync.Once a
// failed build is not remembered; the next caller tries again.
type Lazy[T any] struct {
	name  string
	build func(ctx context.Context) (T, error)

	mu       sync.Mutex
	value    T
	ready    bool
	building chan struct{} // closed when the in-flight build ends
}

// NewLazy wraps build. name shows up in logs and errors.
func NewLazy[T any](name string, build func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{name: name, build: build}
}

// Name returns the capability name.
func (l *Lazy[T]) Name() string {
	return l.name
}

// Get returns the shared instance, building it if needed. Concurrent first
// callers wait for a single build, each bounded by its own ctx; the mutex is
// never held while build runs.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	for {
		l.mu.Lock()
		if l.ready {
			v := l.value
			l.mu.Unlock()
			return v, nil
		}
		if wait := l.building; wait != nil {
			l.mu.Unlock()
			select {
			case <-wait:
				// Built, or failed and up for another attempt.
				continue
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}
		}
		done := make(chan struct{})
		l.building = done
		l.mu.Unlock()

		return l.runBuild(ctx, done)
	}
}

func (l *Lazy[T]) runBuild(ctx context.Context, done chan struct{}) (v T, err error) {
	defer func() {
		l.mu.Lock()
		if err == nil {
			l.value = v
			l.ready = true
		}
		l.building = nil
		l.mu.Unlock()
		close(done)
	}()
	return l.build(ctx)
}

// Warm builds the instance ahead of the first request.
func (l *Lazy[T]) Warm(ctx context.Context) error {
	_, err := l.Get(ctx)
	return err
}

// Ready reports whether the instance has been built.
func (l *Lazy[T]) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}
