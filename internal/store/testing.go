package store

import (
	"context"
	"errors"
	"sync"
)

// ErrInjected is returned by a Faulty store for documents marked as failing.
var ErrInjected = errors.New("injected store failure")

// Faulty wraps a Documents and fails Save for selected document names. It is a
// test helper for exercising rollback paths.
type Faulty struct {
	Documents
	mu      sync.Mutex
	failing map[string]bool
}

// NewFaulty wraps docs; no document fails until FailSaves is called.
func NewFaulty(docs Documents) *Faulty {
	return &Faulty{Documents: docs, failing: map[string]bool{}}
}

// FailSaves makes Save fail for the named documents.
func (f *Faulty) FailSaves(names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range names {
		f.failing[n] = true
	}
}

// Heal clears every injected failure.
func (f *Faulty) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = map[string]bool{}
}

func (f *Faulty) Save(ctx context.Context, name string, value any) error {
	f.mu.Lock()
	fail := f.failing[name]
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.Documents.Save(ctx, name, value)
}
