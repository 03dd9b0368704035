// Package session runs the registration and login flows and holds the single
// active-user slot.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/bank_system/internal/access"
	"github.com/congo-pay/bank_system/internal/account"
	"github.com/congo-pay/bank_system/internal/apperr"
	"github.com/congo-pay/bank_system/internal/credential"
	"github.com/congo-pay/bank_system/internal/logging"
	"github.com/congo-pay/bank_system/internal/otp"
	"github.com/congo-pay/bank_system/internal/phone"
	"github.com/congo-pay/bank_system/internal/ratelimit"
)

var (
	ErrInvalidCredentials      = fmt.Errorf("%w: invalid credentials", apperr.ErrAuthentication)
	ErrInvalidOTP              = fmt.Errorf("%w: invalid OTP", apperr.ErrAuthentication)
	ErrChallengeConsumed       = fmt.Errorf("%w: OTP challenge already used", apperr.ErrAuthentication)
	ErrRegistrationNotVerified = fmt.Errorf("%w: phone number not verified", apperr.ErrAuthentication)
	ErrAccessDenied            = fmt.Errorf("%w: balance not visible", apperr.ErrAuthorization)
	ErrNotAuthenticated        = fmt.Errorf("%w: login required", apperr.ErrAuthorization)
	ErrSessionActive           = fmt.Errorf("%w: a user is already logged in", apperr.ErrConflict)
)

// BalancePolicy bounds the system-assigned opening balance.
type BalancePolicy struct {
	Min int
	Max int
}

// Deps bundles the components a Manager orchestrates.
type Deps struct {
	Credentials *credential.Store
	Phones      *phone.Registry
	OTP         *otp.Issuer
	Matrix      *access.Matrix
	Accounts    *account.Directory
	Limiter     ratelimit.Limiter
	Rand        account.Source
	Balance     BalancePolicy
	Logger      *slog.Logger
}

// Manager composes the credential, phone, OTP, matrix and account components
// into the user-facing flows.
type Manager struct {
	mu     sync.Mutex
	deps   Deps
	active *Session
}

// NewManager builds a Manager. A nil Limiter means no throttling.
func NewManager(deps Deps) *Manager {
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.Unlimited{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return &Manager{deps: deps}
}

// State reports whether a user is logged in.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return Anonymous
	}
	return Authenticated
}

// Active returns the current session.
func (m *Manager) Active() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return Session{}, false
	}
	return *m.active, true
}

// StartRegistration validates phone and sends it a one-time code.
func (m *Manager) StartRegistration(ctx context.Context, phoneNumber string) (*Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return nil, ErrSessionActive
	}
	if err := m.allow(ctx, "otp:"+phoneNumber); err != nil {
		return nil, err
	}
	if err := m.deps.Phones.Validate(phoneNumber); err != nil {
		return nil, err
	}
	c := m.deps.OTP.Issue(ctx, phoneNumber)
	m.deps.Logger.Info("otp issued", slog.String("challenge_id", c.ID), slog.String("phone", phoneNumber))
	return &Registration{Phone: phoneNumber, challenge: c}, nil
}

// ConfirmOTP checks the user's code. Only the first call on a registration
// counts; the challenge is spent afterwards whatever the outcome.
func (m *Manager) ConfirmOTP(reg *Registration, response string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reg == nil || reg.attempted {
		return ErrChallengeConsumed
	}
	reg.attempted = true
	ok := otp.Verify(reg.challenge, response)
	reg.challenge = otp.Challenge{ID: reg.challenge.ID}
	if !ok {
		m.deps.Logger.Info("otp rejected", slog.String("challenge_id", reg.ChallengeID()))
		return ErrInvalidOTP
	}
	reg.verified = true
	return nil
}

// CompleteRegistration creates the account for a verified registration.
// Either every record (credentials, balance, self access, phone binding) is
// created or none is. Registration never logs the user in.
func (m *Manager) CompleteRegistration(ctx context.Context, reg *Registration, username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reg == nil || !reg.verified || reg.completed {
		return ErrRegistrationNotVerified
	}
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return credential.ErrEmptyInput
	}
	if m.deps.Credentials.Exists(username) || m.deps.Accounts.Exists(username) {
		return credential.ErrDuplicateUser
	}
	if m.deps.Phones.IsBound(reg.Phone) {
		return phone.ErrPhoneAlreadyBound
	}

	var undo []func(context.Context) error
	rollback := func(cause error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](ctx); err != nil {
				m.deps.Logger.Error("registration rollback failed", slog.String("username", username), slog.Any("error", err))
			}
		}
		return cause
	}

	if err := m.deps.Credentials.CreateCredentials(ctx, username, password); err != nil {
		return err
	}
	undo = append(undo, func(ctx context.Context) error { return m.deps.Credentials.Forget(ctx, username) })

	opening := account.OpeningBalance(m.deps.Rand, m.deps.Balance.Min, m.deps.Balance.Max)
	if err := m.deps.Accounts.Create(ctx, username, opening); err != nil {
		return rollback(err)
	}
	undo = append(undo, func(ctx context.Context) error { return m.deps.Accounts.Forget(ctx, username) })

	if err := m.deps.Matrix.InitializeSelfAccess(ctx, username); err != nil {
		return rollback(err)
	}
	undo = append(undo, func(ctx context.Context) error { return m.deps.Matrix.Forget(ctx, username) })

	if err := m.deps.Phones.Bind(ctx, username, reg.Phone); err != nil {
		return rollback(err)
	}

	reg.completed = true
	m.deps.Logger.Info("user registered", slog.String("username", username), slog.String("challenge_id", reg.ChallengeID()))
	return nil
}

// Login authenticates username and makes it the active user. Unknown users
// and wrong passwords fail identically.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return Session{}, ErrSessionActive
	}
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if err := m.allow(ctx, "login:"+username); err != nil {
		return Session{}, err
	}
	if !m.deps.Credentials.Verify(ctx, username, password) {
		m.deps.Logger.Info("login failed", slog.String("username", username))
		return Session{}, ErrInvalidCredentials
	}
	s := &Session{ID: uuid.NewString(), Username: username, StartedAt: time.Now().UTC()}
	m.active = s
	m.deps.Logger.Info("login succeeded", slog.String("username", username), slog.String("session_id", s.ID))
	return *s, nil
}

// Logout clears the active user.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNotAuthenticated
	}
	m.deps.Logger.Info("logout", slog.String("username", m.active.Username), slog.String("session_id", m.active.ID))
	m.active = nil
	return nil
}

// OwnBalance returns the active user's balance.
func (m *Manager) OwnBalance(_ context.Context) (float64, error) {
	user, err := m.current()
	if err != nil {
		return 0, err
	}
	return m.deps.Accounts.Balance(user)
}

// ViewBalance returns owner's balance if the active user may see it. A
// missing owner and a denied request look the same to the caller.
func (m *Manager) ViewBalance(_ context.Context, owner string) (float64, error) {
	user, err := m.current()
	if err != nil {
		return 0, err
	}
	owner = strings.TrimSpace(owner)
	if !m.deps.Accounts.Exists(owner) || !m.deps.Matrix.CanView(user, owner) {
		m.deps.Logger.Info("balance view denied", slog.String("viewer", user), slog.String("owner", owner))
		return 0, ErrAccessDenied
	}
	amount, err := m.deps.Accounts.Balance(owner)
	if errors.Is(err, account.ErrUnknownUser) {
		return 0, ErrAccessDenied
	}
	return amount, err
}

// Grant lets grantee view the active user's balance.
func (m *Manager) Grant(ctx context.Context, grantee string) error {
	user, err := m.current()
	if err != nil {
		return err
	}
	grantee = strings.TrimSpace(grantee)
	if err := m.deps.Matrix.Grant(ctx, user, grantee); err != nil {
		return err
	}
	m.deps.Logger.Info("access granted", slog.String("owner", user), slog.String("viewer", grantee))
	return nil
}

// Revoke withdraws grantee's view of the active user's balance.
func (m *Manager) Revoke(ctx context.Context, grantee string) error {
	user, err := m.current()
	if err != nil {
		return err
	}
	grantee = strings.TrimSpace(grantee)
	if err := m.deps.Matrix.Revoke(ctx, user, grantee); err != nil {
		return err
	}
	m.deps.Logger.Info("access revoked", slog.String("owner", user), slog.String("viewer", grantee))
	return nil
}

// Viewers lists who may see the active user's balance.
func (m *Manager) Viewers() ([]string, error) {
	user, err := m.current()
	if err != nil {
		return nil, err
	}
	return m.deps.Matrix.Viewers(user), nil
}

func (m *Manager) current() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return "", ErrNotAuthenticated
	}
	return m.active.Username, nil
}

func (m *Manager) allow(ctx context.Context, key string) error {
	ok, err := m.deps.Limiter.Allow(ctx, key)
	if err != nil {
		m.deps.Logger.Warn("rate limiter unavailable", slog.String("key", key), slog.Any("error", err))
	}
	if !ok {
		return ratelimit.ErrLimited
	}
	return nil
}
