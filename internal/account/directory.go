// Package account keeps the balance of every registered user.
package account

import (
	"context"
	"fmt"
	"sync"

	"github.com/congo-pay/bank_system/internal/apperr"
	"github.com/congo-pay/bank_system/internal/store"
)

var (
	ErrUnknownUser     = fmt.Errorf("%w: no such account", apperr.ErrAuthorization)
	ErrAccountExists   = fmt.Errorf("%w: account already exists", apperr.ErrConflict)
	ErrNegativeBalance = fmt.Errorf("%w: balance must not be negative", apperr.ErrValidation)
)

// Source is the random source for opening balances.
type Source interface {
	IntN(n int) int
}

// OpeningBalance picks the balance a new account starts with: a whole amount
// in [lo, hi]. Users never choose it.
func OpeningBalance(rng Source, lo, hi int) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	return float64(lo + rng.IntN(hi-lo+1))
}

// Directory maps usernames to balances.
type Directory struct {
	mu       sync.RWMutex
	docs     store.Documents
	balances map[string]float64
}

// Open loads the balances document, creating an empty one when missing.
func Open(ctx context.Context, docs store.Documents) (*Directory, error) {
	balances := map[string]float64{}
	if _, err := store.LoadOrInit(ctx, docs, store.DocBalances, &balances, map[string]float64{}); err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	if balances == nil {
		balances = map[string]float64{}
	}
	return &Directory{docs: docs, balances: balances}, nil
}

// Create opens an account for username with the given balance.
func (d *Directory) Create(ctx context.Context, username string, initial float64) error {
	if initial < 0 {
		return ErrNegativeBalance
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.balances[username]; exists {
		return ErrAccountExists
	}
	d.balances[username] = initial
	if err := d.persist(ctx); err != nil {
		delete(d.balances, username)
		return err
	}
	return nil
}

// Balance returns username's balance.
func (d *Directory) Balance(username string) (float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	amount, ok := d.balances[username]
	if !ok {
		return 0, ErrUnknownUser
	}
	return amount, nil
}

// Exists reports whether username has an account.
func (d *Directory) Exists(username string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.balances[username]
	return ok
}

// Forget removes the account of an aborted registration.
func (d *Directory) Forget(ctx context.Context, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	amount, ok := d.balances[username]
	if !ok {
		return nil
	}
	delete(d.balances, username)
	if err := d.persist(ctx); err != nil {
		d.balances[username] = amount
		return err
	}
	return nil
}

func (d *Directory) persist(ctx context.Context) error {
	if err := d.docs.Save(ctx, store.DocBalances, d.balances); err != nil {
		return fmt.Errorf("persist balances: %w", err)
	}
	return nil
}
