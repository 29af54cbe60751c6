// Package gate implements the forced password-change overlay.
//
// A gate is mounted once per logged-in user. While Blocking it refuses every
// dismissal; a successful change moves it to ConfirmingBrief, and after
// ConfirmFor plus FadeOut it is Removed for good.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mokjang/youth-admin/internal/core/domain"
)

const (
	DefaultConfirmFor = 3 * time.Second
	DefaultFadeOut    = 300 * time.Millisecond
)

type State uint8

const (
	Hidden State = iota
	Blocking
	ConfirmingBrief
	Removed
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Blocking:
		return "blocking"
	case ConfirmingBrief:
		return "confirming"
	case Removed:
		return "removed"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

var (
	ErrBlocking = errors.New("a new password is required before continuing")
	ErrPending  = errors.New("a password change is already in progress")
	ErrClosed   = errors.New("password gate is not open")
)

// PasswordChanger is satisfied by *session.Provider.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, newPassword, currentPassword string) (*domain.SessionUser, error)
}

// AfterFunc schedules f after d and returns a function that cancels it.
// f must run on another goroutine or later, never inside the call.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Form is the gate's form. Field names double as form keys.
type Form struct {
	NewPassword string `form:"newPassword" validate:"required,min=6"`
	Confirm     string `form:"confirm" validate:"required,eqfield=NewPassword"`
}

// FieldErrors maps form keys to messages. It is returned before any network call.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	return fmt.Sprintf("invalid password form (%d fields)", len(fe))
}

type Gate struct {
	changer  PasswordChanger
	after    AfterFunc
	validate *validator.Validate

	confirmFor time.Duration
	fadeOut    time.Duration

	mu      sync.Mutex
	state   State
	fading  bool
	pending bool
	stop    func() bool
}

type Option func(*Gate)

// WithAfterFunc replaces time.AfterFunc, for tests.
func WithAfterFunc(f AfterFunc) Option {
	return func(g *Gate) { g.after = f }
}

func WithDurations(confirmFor, fadeOut time.Duration) Option {
	return func(g *Gate) { g.confirmFor, g.fadeOut = confirmFor, fadeOut }
}

// WithValidator shares a validator instance.
func WithValidator(v *validator.Validate) Option {
	return func(g *Gate) { g.validate = v }
}

// New mounts a gate. It starts Blocking when mustChange is set, else Hidden.
func New(mustChange bool, changer PasswordChanger, opts ...Option) *Gate {
	g := &Gate{
		changer:    changer,
		after:      realAfterFunc,
		confirmFor: DefaultConfirmFor,
		fadeOut:    DefaultFadeOut,
		state:      Hidden,
	}
	for _, o := range opts {
		o(g)
	}
	if g.validate == nil {
		g.validate = validator.New()
	}
	if mustChange {
		g.state = Blocking
	}
	return g
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// ConfirmWindow is how long the confirmation stays up, fade-out included.
func (g *Gate) ConfirmWindow() time.Duration {
	return g.confirmFor + g.fadeOut
}

// Fading reports whether the confirmation is in its fade-out window.
func (g *Gate) Fading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fading
}

// Pending reports whether a submission is awaiting the server.
func (g *Gate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

// Submit validates the form and, if it passes, changes the password. Only one
// submission may be outstanding; a second returns ErrPending.
func (g *Gate) Submit(ctx context.Context, newPassword, confirm string) error {
	g.mu.Lock()
	switch {
	case g.state != Blocking:
		g.mu.Unlock()
		return ErrClosed
	case g.pending:
		g.mu.Unlock()
		return ErrPending
	}
	if fe := g.check(Form{NewPassword: newPassword, Confirm: confirm}); fe != nil {
		g.mu.Unlock()
		return fe
	}
	g.pending = true
	g.mu.Unlock()

	_, err := g.changer.ChangePassword(ctx, newPassword, "")

	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = false
	if err != nil {
		return err
	}
	g.state = ConfirmingBrief
	g.stop = g.after(g.confirmFor, g.startFade)
	return nil
}

// Dismiss handles escape and backdrop clicks. It is refused while Blocking,
// ends the confirmation early, and is a no-op otherwise.
func (g *Gate) Dismiss(reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case Blocking:
		return fmt.Errorf("%w (%s ignored)", ErrBlocking, reason)
	case ConfirmingBrief:
		g.removeLocked()
	}
	return nil
}

// Close cancels any pending timer.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stop != nil {
		g.stop()
		g.stop = nil
	}
}

func (g *Gate) startFade() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != ConfirmingBrief {
		return
	}
	g.fading = true
	g.stop = g.after(g.fadeOut, g.remove)
}

func (g *Gate) remove() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked()
}

func (g *Gate) removeLocked() {
	if g.stop != nil {
		g.stop()
		g.stop = nil
	}
	g.state = Removed
	g.fading = false
}

func (g *Gate) check(f Form) FieldErrors {
	err := g.validate.Struct(f)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return FieldErrors{"newPassword": err.Error()}
	}
	out := make(FieldErrors, len(ve))
	for _, fe := range ve {
		switch fe.StructField() {
		case "NewPassword":
			out["newPassword"] = passwordMessage(fe)
		case "Confirm":
			out["confirm"] = confirmMessage(fe)
		}
	}
	return out
}

func passwordMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Enter a new password."
	case "min":
		return fmt.Sprintf("Use at least %s characters.", fe.Param())
	}
	return "This password cannot be used."
}

func confirmMessage(fe validator.FieldError) string {
	if fe.Tag() == "required" {
		return "Confirm the new password."
	}
	return "The passwords do not match."
}
