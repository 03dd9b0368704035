// Package access implements the discretionary access matrix deciding who may
// view whose balance.
package access

import (
	"context"
	"fmt"
	"sync"

	"github.com/congo-pay/bank_system/internal/apperr"
	"github.com/congo-pay/bank_system/internal/store"
)

var (
	ErrUnknownUser             = fmt.Errorf("%w: unable to process access for that user", apperr.ErrValidation)
	ErrAlreadyGranted          = fmt.Errorf("%w: user already has access", apperr.ErrConflict)
	ErrNotGranted              = fmt.Errorf("%w: user does not have access", apperr.ErrConflict)
	ErrSelfRevocationForbidden = fmt.Errorf("%w: cannot revoke your own access", apperr.ErrConflict)
)

// AccountChecker tells the matrix whether a username has an account.
type AccountChecker interface {
	Exists(username string) bool
}

// Matrix maps each owner to the set of users allowed to view the owner's
// balance.
type Matrix struct {
	mu       sync.RWMutex
	docs     store.Documents
	accounts AccountChecker
	grants   map[string]Set
}

// Open loads the matrix document, creating an empty one when missing.
func Open(ctx context.Context, docs store.Documents, accounts AccountChecker) (*Matrix, error) {
	persisted := map[string][]string{}
	if _, err := store.LoadOrInit(ctx, docs, store.DocMatrix, &persisted, map[string][]string{}); err != nil {
		return nil, fmt.Errorf("load matrix: %w", err)
	}
	return &Matrix{docs: docs, accounts: accounts, grants: Decode(persisted)}, nil
}

// viewersOf returns owner's set, or an empty set when owner has none. The
// returned set must not be mutated.
func (m *Matrix) viewersOf(owner string) Set {
	if s, ok := m.grants[owner]; ok {
		return s
	}
	return Set{}
}

// InitializeSelfAccess gives a new account a set containing only itself.
func (m *Matrix) InitializeSelfAccess(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, had := m.grants[username]
	m.grants[username] = NewSet(username)
	if err := m.persist(ctx); err != nil {
		if had {
			m.grants[username] = prev
		} else {
			delete(m.grants, username)
		}
		return err
	}
	return nil
}

// Grant lets grantee view grantor's balance.
func (m *Matrix) Grant(ctx context.Context, grantor, grantee string) error {
	if m.accounts == nil || !m.accounts.Exists(grantee) {
		return ErrUnknownUser
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.viewersOf(grantor).Has(grantee) {
		return ErrAlreadyGranted
	}
	set, ok := m.grants[grantor]
	if !ok {
		set = Set{}
		m.grants[grantor] = set
	}
	set.Add(grantee)
	if err := m.persist(ctx); err != nil {
		set.Remove(grantee)
		if !ok {
			delete(m.grants, grantor)
		}
		return err
	}
	return nil
}

// Revoke withdraws grantee's view of grantor's balance. Revoking an absent
// grant reports ErrNotGranted and changes nothing.
func (m *Matrix) Revoke(ctx context.Context, grantor, grantee string) error {
	if grantor == grantee {
		return ErrSelfRevocationForbidden
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.viewersOf(grantor).Has(grantee) {
		return ErrNotGranted
	}
	set := m.grants[grantor]
	set.Remove(grantee)
	if err := m.persist(ctx); err != nil {
		set.Add(grantee)
		return err
	}
	return nil
}

// CanView reports whether viewer may see owner's balance. Owners can always
// see their own.
func (m *Matrix) CanView(viewer, owner string) bool {
	if viewer == owner {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viewersOf(owner).Has(viewer)
}

// Viewers lists, sorted, who may view owner's balance.
func (m *Matrix) Viewers(owner string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viewersOf(owner).Sorted()
}

// Forget drops owner's row after an aborted registration. Grants naming owner
// in other rows are left alone; a fresh account cannot have any yet.
func (m *Matrix) Forget(ctx context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.grants[owner]
	if !ok {
		return nil
	}
	delete(m.grants, owner)
	if err := m.persist(ctx); err != nil {
		m.grants[owner] = prev
		return err
	}
	return nil
}

func (m *Matrix) persist(ctx context.Context) error {
	if err := m.docs.Save(ctx, store.DocMatrix, Encode(m.grants)); err != nil {
		return fmt.Errorf("persist matrix: %w", err)
	}
	return nil
}
