package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State is a step of a two-phase OTP wizard.
type State string

const (
	StateCollecting State = "collecting-data"
	StateOTPSent    State = "otp-sent"
	StateVerified   State = "verified"
)

// ErrInvalidTransition is returned when a wizard step is attempted out of order.
var ErrInvalidTransition = errors.New("session: invalid wizard transition")

var transitions = map[State][]State{
	StateCollecting: {StateOTPSent},
	StateOTPSent:    {StateOTPSent, StateVerified},
}

// Flow tracks the state of one OTP wizard. Steps are serialized.
type Flow struct {
	mu    sync.Mutex
	state State
	email string
}

// State returns the current step.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current()
}

// Email returns the address the code was sent to, or "" before that.
func (f *Flow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

func (f *Flow) current() State {
	if f.state == "" {
		return StateCollecting
	}
	return f.state
}

func (f *Flow) check(to State) error {
	from := f.current()
	for _, s := range transitions[from] {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// step runs op and moves to `to` only when op reports success.
func (f *Flow) step(to State, op func() Result) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(to); err != nil {
		return Result{}, err
	}
	res := op()
	if res.Success {
		f.state = to
	}
	return res, nil
}

// Registration is the sign-up wizard: request a code, then submit the form with it.
type Registration struct {
	Flow
	store *Store
}

// NewRegistration starts a sign-up wizard in collecting-data.
func (s *Store) NewRegistration() *Registration {
	return &Registration{store: s}
}

// RequestCode sends (or resends) the verification code.
func (r *Registration) RequestCode(ctx context.Context, email string) (Result, error) {
	return r.step(StateOTPSent, func() Result {
		res := r.store.SendOtp(ctx, email)
		if res.Success {
			r.email = email
		}
		return res
	})
}

// Submit completes registration with the code. The email the code was sent
// to is used when form.Email is empty. A failed attempt stays in otp-sent.
func (r *Registration) Submit(ctx context.Context, form RegisterForm) (Result, error) {
	return r.step(StateVerified, func() Result {
		if form.Email == "" {
			form.Email = r.email
		}
		return r.store.Register(ctx, form)
	})
}

// PasswordReset is the forgot-password wizard.
type PasswordReset struct {
	Flow
	store *Store
}

// NewPasswordReset starts a reset wizard in collecting-data.
func (s *Store) NewPasswordReset() *PasswordReset {
	return &PasswordReset{store: s}
}

// RequestCode sends (or resends) the reset code.
func (p *PasswordReset) RequestCode(ctx context.Context, email string) (Result, error) {
	return p.step(StateOTPSent, func() Result {
		res := p.store.ForgotPassword(ctx, email)
		if res.Success {
			p.email = email
		}
		return res
	})
}

// Reset sets the new password with the code sent to the requested address.
func (p *PasswordReset) Reset(ctx context.Context, otp, newPassword string) (Result, error) {
	return p.step(StateVerified, func() Result {
		return p.store.ResetUserPassword(ctx, p.email, otp, newPassword)
	})
}
