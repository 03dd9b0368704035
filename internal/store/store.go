package store

import (
	"context"
	"errors"
)

// Document names used by the bank system.
const (
	DocPasswords   = "passwords"
	DocSalts       = "salts"
	DocBalances    = "balances"
	DocUsersPhones = "usersPhones"
	DocMatrix      = "matrix"
	DocPhones      = "phones"
)

// ErrUnknownDocument is returned by backends that map document names to
// fixed locations when asked for a name they do not know.
var ErrUnknownDocument = errors.New("unknown document")

// Documents persists whole JSON-shaped documents keyed by name. Save always
// rewrites the full document.
type Documents interface {
	// Load decodes the named document into dest. found is false when the
	// document does not exist yet; dest is left untouched in that case.
	Load(ctx context.Context, name string, dest any) (found bool, err error)
	Save(ctx context.Context, name string, value any) error
}

// LoadOrInit loads the named document into dest. When the document is
// missing it saves init instead and reports created=true.
func LoadOrInit(ctx context.Context, docs Documents, name string, dest any, init any) (created bool, err error) {
	found, err := docs.Load(ctx, name, dest)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	if err := docs.Save(ctx, name, init); err != nil {
		return false, err
	}
	return true, nil
}
