// Package cli is the interactive terminal front end of the bank system.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/congo-pay/bank_system/internal/access"
	"github.com/congo-pay/bank_system/internal/apperr"
	"github.com/congo-pay/bank_system/internal/credential"
	"github.com/congo-pay/bank_system/internal/logging"
	"github.com/congo-pay/bank_system/internal/phone"
	"github.com/congo-pay/bank_system/internal/ratelimit"
	"github.com/congo-pay/bank_system/internal/session"
)

// PasswordReader reads one password without echoing it.
type PasswordReader func() (string, error)

// Shell runs the menus against a session manager.
type Shell struct {
	mgr          *session.Manager
	in           *bufio.Reader
	out          io.Writer
	readPassword PasswordReader
	title        string
	pause        time.Duration
	sleep        func(time.Duration)
	logger       *slog.Logger
}

type Option func(*Shell)

// WithPasswordReader replaces the plain line read used for passwords.
func WithPasswordReader(r PasswordReader) Option {
	return func(s *Shell) { s.readPassword = r }
}

// WithPause sets how long notices stay on screen before the menu returns.
func WithPause(d time.Duration) Option {
	return func(s *Shell) { s.pause = d }
}

func WithTitle(title string) Option {
	return func(s *Shell) { s.title = title }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) { s.logger = l }
}

// New builds a Shell reading commands from in and writing to out.
func New(mgr *session.Manager, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		mgr:    mgr,
		in:     bufio.NewReader(in),
		out:    out,
		title:  "Bank System",
		sleep:  time.Sleep,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.readPassword == nil {
		s.readPassword = s.readLine
	}
	return s
}

// Run loops over the menus until the user exits, input ends or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		var (
			exit bool
			err  error
		)
		if s.mgr.State() == session.Authenticated {
			exit, err = s.userMenu(ctx)
		} else {
			exit, err = s.mainMenu(ctx)
		}
		if errors.Is(err, io.EOF) {
			s.printf("\n")
			return nil
		}
		if err != nil {
			return err
		}
		if exit {
			return nil
		}
	}
}

func (s *Shell) mainMenu(ctx context.Context) (bool, error) {
	s.printf("=== Welcome to %s! ===\n\n", s.title)
	s.printf("1- Login\n2- Register New User\n3- Exit\n\n")
	choice, err := s.prompt("Select: ")
	if err != nil {
		return false, err
	}
	switch choice {
	case "1":
		return false, s.login(ctx)
	case "2":
		return false, s.register(ctx)
	case "3":
		s.printf("Exiting...\n")
		return true, nil
	default:
		s.notice("Invalid choice.")
		return false, nil
	}
}

func (s *Shell) userMenu(ctx context.Context) (bool, error) {
	active, _ := s.mgr.Active()
	s.printf("Current user : %s\n\n", active.Username)
	s.printf("1- View Your Balance\n2- View Others' Balance\n3- Grant Access\n4- Revoke Access\n5- Logout\n6- Exit\n7- Show Who Can View My Balance\n\n")
	choice, err := s.prompt("Select: ")
	if err != nil {
		return false, err
	}
	switch choice {
	case "1":
		return false, s.ownBalance(ctx)
	case "2":
		return false, s.othersBalance(ctx)
	case "3":
		return false, s.grant(ctx)
	case "4":
		return false, s.revoke(ctx)
	case "5":
		if err := s.mgr.Logout(); err != nil {
			s.report(err)
			return false, nil
		}
		s.notice("Logging out...")
		return false, nil
	case "6":
		s.printf("Exiting...\n")
		return true, nil
	case "7":
		return false, s.viewers()
	default:
		s.notice("Invalid choice.")
		return false, nil
	}
}

func (s *Shell) register(ctx context.Context) error {
	s.printf("=== New User Registration ===\n\n")
	number, err := s.prompt("Enter your registered phone number: ")
	if err != nil {
		return err
	}
	reg, err := s.mgr.StartRegistration(ctx, number)
	if err != nil {
		s.report(err)
		return nil
	}
	s.printf("OTP code sent to %s...\n\n", number)

	code, err := s.promptExact("Enter the OTP code sent to your phone number: ")
	if err != nil {
		return err
	}
	if err := s.mgr.ConfirmOTP(reg, code); err != nil {
		s.report(err)
		return nil
	}
	s.printf("Success OTP Verification!\n\n")

	username, err := s.prompt("Username: ")
	if err != nil {
		return err
	}
	if username == "" {
		s.notice("ERROR: Username can not be empty.")
		return nil
	}
	password, err := s.promptPassword("Password: ")
	if err != nil {
		return err
	}
	if err := s.mgr.CompleteRegistration(ctx, reg, username, password); err != nil {
		s.report(err)
		return nil
	}
	s.notice("Account created successfully!")
	return nil
}

func (s *Shell) login(ctx context.Context) error {
	s.printf("=== %s ===\n\n", strings.ToUpper(s.title))
	username, err := s.prompt("Username: ")
	if err != nil {
		return err
	}
	password, err := s.promptPassword("Password: ")
	if err != nil {
		return err
	}
	if _, err := s.mgr.Login(ctx, username, password); err != nil {
		s.report(err)
		return nil
	}
	s.notice("Login Success.!")
	return nil
}

func (s *Shell) ownBalance(ctx context.Context) error {
	amount, err := s.mgr.OwnBalance(ctx)
	if err != nil {
		s.report(err)
		return nil
	}
	s.printf("\nYour balance is $%.2f\n\n", amount)
	return s.waitEnter()
}

func (s *Shell) othersBalance(ctx context.Context) error {
	target, err := s.prompt("View balance of user: ")
	if err != nil {
		return err
	}
	amount, err := s.mgr.ViewBalance(ctx, target)
	if err != nil {
		s.report(err)
		return nil
	}
	s.printf("\nBalance of %s is $%.2f\n\n", target, amount)
	return s.waitEnter()
}

func (s *Shell) grant(ctx context.Context) error {
	target, err := s.prompt("Enter the username you want to grant access to: ")
	if err != nil {
		return err
	}
	if err := s.mgr.Grant(ctx, target); err != nil {
		s.report(err)
		return nil
	}
	s.notice("Access Granted!")
	return nil
}

func (s *Shell) revoke(ctx context.Context) error {
	target, err := s.prompt("Enter the username you want to revoke access from: ")
	if err != nil {
		return err
	}
	err = s.mgr.Revoke(ctx, target)
	switch {
	case err == nil:
		s.notice(fmt.Sprintf("Access Revoked from %s!", target))
	case errors.Is(err, access.ErrNotGranted):
		s.notice(fmt.Sprintf("%s already doesn't have access", target))
	default:
		s.report(err)
	}
	return nil
}

func (s *Shell) viewers() error {
	names, err := s.mgr.Viewers()
	if err != nil {
		s.report(err)
		return nil
	}
	s.printf("\nUsers who can view your balance:\n")
	for _, n := range names {
		s.printf("  - %s\n", n)
	}
	s.printf("\n")
	return s.waitEnter()
}

// report prints the user-facing message for err. Failures outside the known
// categories are logged and shown generically.
func (s *Shell) report(err error) {
	msg, ok := message(err)
	if !ok {
		s.logger.Error("operation failed", slog.Any("error", err))
	}
	s.notice(msg)
}

func message(err error) (string, bool) {
	switch {
	case errors.Is(err, ratelimit.ErrLimited):
		return "Too many attempts. Please try again later.", true
	case errors.Is(err, session.ErrInvalidCredentials):
		return "Login Failed!: Invalid Credentials.", true
	case errors.Is(err, session.ErrInvalidOTP), errors.Is(err, session.ErrChallengeConsumed):
		return "Invalid OTP! Registration aborted!", true
	case errors.Is(err, session.ErrAccessDenied):
		return "ACCESS DENIED!", true
	case errors.Is(err, phone.ErrPhoneNotNumeric):
		return "ERROR: Only numbers are allowed.", true
	case errors.Is(err, phone.ErrPhoneLength):
		return fmt.Sprintf("ERROR: Phone number should have %d digits.", phone.Length), true
	case errors.Is(err, phone.ErrPhoneNotEligible):
		return "ERROR: This phone number is not registered in the system!", true
	case errors.Is(err, phone.ErrPhoneAlreadyBound), errors.Is(err, phone.ErrUserHasPhone):
		return "ERROR: Unable to process registration for this number.", true
	case errors.Is(err, credential.ErrDuplicateUser):
		return "ERROR: Username already exists.", true
	case errors.Is(err, credential.ErrEmptyInput):
		return "ERROR: Username and password can not be empty.", true
	case errors.Is(err, access.ErrUnknownUser):
		return "ERROR: Unable to process access for that user.", true
	case errors.Is(err, access.ErrAlreadyGranted):
		return "This user has access already.", true
	case errors.Is(err, access.ErrSelfRevocationForbidden):
		return "ERROR: You can't revoke your own access!", true
	case apperr.Category(err) != nil:
		return "ERROR: " + err.Error(), true
	default:
		return "ERROR: Something went wrong, please try again.", false
	}
}

func (s *Shell) notice(msg string) {
	s.printf("\n%s\n\n", msg)
	if s.pause > 0 {
		s.sleep(s.pause)
	}
}

func (s *Shell) waitEnter() error {
	_, err := s.prompt("Strike enter key to go back...")
	return err
}

func (s *Shell) prompt(label string) (string, error) {
	s.printf("%s", label)
	return s.readLine()
}

// promptExact returns the answer with only the line terminator removed.
func (s *Shell) promptExact(label string) (string, error) {
	s.printf("%s", label)
	line, err := s.readRaw()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *Shell) promptPassword(label string) (string, error) {
	s.printf("%s", label)
	return s.readPassword()
}

// readLine returns the next trimmed line.
func (s *Shell) readLine() (string, error) {
	line, err := s.readRaw()
	return strings.TrimSpace(line), err
}

// readRaw returns the next line including its terminator. A final line
// without a newline is still returned; io.EOF is reported only when nothing
// was read.
func (s *Shell) readRaw() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return line, nil
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
