// Package apperr declares the error categories shared by the bank system
// components. Component packages wrap one of these with %w so callers can
// match either the specific failure or its category with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation marks malformed input such as empty fields or a badly
	// formatted phone number. The current flow is aborted and may be retried.
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization marks a denied request. Messages must not reveal
	// whether the target exists.
	ErrAuthorization = errors.New("access denied")

	// ErrConflict marks a request that clashes with existing state.
	ErrConflict = errors.New("state conflict")

	// ErrAuthentication marks bad credentials or a bad one-time code.
	ErrAuthentication = errors.New("authentication failed")
)

// Category returns the category sentinel err belongs to, or nil when err is
// not one of ours (for example an infrastructure failure).
func Category(err error) error {
	for _, c := range []error{ErrValidation, ErrAuthorization, ErrConflict, ErrAuthentication} {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}
