// Package otp issues and checks the four-digit codes that prove possession of
// a phone number during registration.
//
// Codes never expire and are drawn from an ordinary PRNG; callers get one
// verification attempt per challenge. Throttling, when wanted, is done by the
// caller through internal/ratelimit.
package otp

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/bank_system/internal/notification"
)

const (
	minCode = 1000
	maxCode = 9999
)

// Source is the random source for codes. *rand.Rand from math/rand/v2
// satisfies it.
type Source interface {
	IntN(n int) int
}

// Challenge is a pending one-time code for a phone number. It lives only in
// the memory of the registration flow that requested it.
type Challenge struct {
	ID       string
	Phone    string
	Code     string
	IssuedAt time.Time
}

// Issuer generates codes and hands them to a notifier.
type Issuer struct {
	notifier    notification.Notifier
	rng         Source
	logger      *slog.Logger
	title       string
	timeoutHint time.Duration
}

// NewIssuer builds an Issuer. title is shown as the notification title and
// timeoutHint tells the delivery channel how long to display it.
func NewIssuer(notifier notification.Notifier, rng Source, logger *slog.Logger, title string, timeoutHint time.Duration) *Issuer {
	return &Issuer{notifier: notifier, rng: rng, logger: logger, title: title, timeoutHint: timeoutHint}
}

// Issue draws a code in 1000..9999 and sends it to phone. Delivery failures
// are logged, never returned.
func (i *Issuer) Issue(ctx context.Context, phone string) Challenge {
	c := Challenge{
		ID:       uuid.NewString(),
		Phone:    phone,
		Code:     strconv.Itoa(minCode + i.rng.IntN(maxCode-minCode+1)),
		IssuedAt: time.Now().UTC(),
	}
	if i.notifier != nil {
		err := i.notifier.Send(ctx, notification.Message{
			ID:          c.ID,
			Kind:        notification.KindOTP,
			Destination: phone,
			Title:       i.title,
			Body:        fmt.Sprintf("Your OTP code: %s", c.Code),
			TimeoutHint: i.timeoutHint,
		})
		if err != nil && i.logger != nil {
			i.logger.Warn("otp delivery failed", slog.String("challenge_id", c.ID), slog.Any("error", err))
		}
	}
	return c
}

// Verify reports whether response is exactly the issued code.
func Verify(c Challenge, response string) bool {
	return c.Code != "" && response == c.Code
}
