package session

import (
	"time"

	"github.com/congo-pay/bank_system/internal/otp"
)

// State is the session state machine position.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Session describes the logged-in user.
type Session struct {
	ID        string
	Username  string
	StartedAt time.Time
}

// Registration is one in-flight registration attempt. It carries the OTP
// challenge from StartRegistration to ConfirmOTP and is single use.
type Registration struct {
	Phone     string
	challenge otp.Challenge
	attempted bool
	verified  bool
	completed bool
}

// ChallengeID identifies the OTP sent for this registration.
func (r *Registration) ChallengeID() string {
	return r.challenge.ID
}
