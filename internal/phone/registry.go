// Package phone keeps the pre-provisioned eligible phone numbers and the
// one-to-one binding between usernames and phones.
package phone

import (
	"context"
	"fmt"
	"sync"

	"github.com/congo-pay/bank_system/internal/apperr"
	"github.com/congo-pay/bank_system/internal/store"
)

// Length is the exact number of digits of a phone number.
const Length = 11

var (
	ErrPhoneNotNumeric   = fmt.Errorf("%w: only digits are allowed", apperr.ErrValidation)
	ErrPhoneLength       = fmt.Errorf("%w: phone number must have %d digits", apperr.ErrValidation, Length)
	ErrPhoneNotEligible  = fmt.Errorf("%w: phone number is not registered in the system", apperr.ErrValidation)
	ErrPhoneAlreadyBound = fmt.Errorf("%w: phone number already bound", apperr.ErrConflict)
	ErrUserHasPhone      = fmt.Errorf("%w: user already has a phone number", apperr.ErrConflict)
)

// Registry answers eligibility questions and records which user owns which
// phone.
type Registry struct {
	mu       sync.RWMutex
	docs     store.Documents
	eligible map[string]struct{}
	byUser   map[string]string
	byPhone  map[string]string
	seeded   bool
}

// Open loads the eligible phone set and the user bindings. When the eligible
// set does not exist yet, seedCount numbers are generated from rng and saved.
func Open(ctx context.Context, docs store.Documents, seedCount int, rng Source) (*Registry, error) {
	var phones []string
	found, err := docs.Load(ctx, store.DocPhones, &phones)
	if err != nil {
		return nil, fmt.Errorf("load phones: %w", err)
	}
	if !found {
		phones = Generate(seedCount, rng)
		if err := docs.Save(ctx, store.DocPhones, phones); err != nil {
			return nil, fmt.Errorf("seed phones: %w", err)
		}
	}

	bindings := map[string]string{}
	if _, err := store.LoadOrInit(ctx, docs, store.DocUsersPhones, &bindings, map[string]string{}); err != nil {
		return nil, fmt.Errorf("load user phones: %w", err)
	}
	if bindings == nil {
		bindings = map[string]string{}
	}

	r := &Registry{
		docs:     docs,
		eligible: make(map[string]struct{}, len(phones)),
		byUser:   bindings,
		byPhone:  make(map[string]string, len(bindings)),
		seeded:   !found,
	}
	for _, p := range phones {
		r.eligible[p] = struct{}{}
	}
	for user, p := range bindings {
		r.byPhone[p] = user
	}
	return r, nil
}

// Seeded reports whether Open had to generate the eligible set.
func (r *Registry) Seeded() bool {
	return r.seeded
}

// Eligible returns the eligible phone numbers in no particular order.
func (r *Registry) Eligible() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.eligible))
	for p := range r.eligible {
		out = append(out, p)
	}
	return out
}

// Validate runs the registration checks in order: digits only, exact length,
// eligible set membership, not yet bound. The first failing check wins.
func (r *Registry) Validate(phone string) error {
	if !isDigits(phone) {
		return ErrPhoneNotNumeric
	}
	if len(phone) != Length {
		return ErrPhoneLength
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.eligible[phone]; !ok {
		return ErrPhoneNotEligible
	}
	if _, bound := r.byPhone[phone]; bound {
		return ErrPhoneAlreadyBound
	}
	return nil
}

// IsEligible reports whether phone is well formed and pre-provisioned.
func (r *Registry) IsEligible(phone string) bool {
	if !isDigits(phone) || len(phone) != Length {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.eligible[phone]
	return ok
}

// IsBound reports whether any user owns phone.
func (r *Registry) IsBound(phone string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPhone[phone]
	return ok
}

// PhoneOf returns the phone bound to username.
func (r *Registry) PhoneOf(username string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byUser[username]
	return p, ok
}

// Bind records phone as owned by username and persists the bindings.
func (r *Registry) Bind(ctx context.Context, username, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, bound := r.byPhone[phone]; bound {
		return ErrPhoneAlreadyBound
	}
	if _, has := r.byUser[username]; has {
		return ErrUserHasPhone
	}
	r.byUser[username] = phone
	r.byPhone[phone] = username
	if err := r.persist(ctx); err != nil {
		delete(r.byUser, username)
		delete(r.byPhone, phone)
		return err
	}
	return nil
}

// Unbind releases the phone of an aborted registration.
func (r *Registry) Unbind(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	phone, ok := r.byUser[username]
	if !ok {
		return nil
	}
	delete(r.byUser, username)
	delete(r.byPhone, phone)
	if err := r.persist(ctx); err != nil {
		r.byUser[username] = phone
		r.byPhone[phone] = username
		return err
	}
	return nil
}

func (r *Registry) persist(ctx context.Context) error {
	if err := r.docs.Save(ctx, store.DocUsersPhones, r.byUser); err != nil {
		return fmt.Errorf("persist user phones: %w", err)
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
