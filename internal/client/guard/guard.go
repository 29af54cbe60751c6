// Package guard decides what a console page renders for the current session.
package guard

import (
	"errors"
	"fmt"

	"github.com/mokjang/youth-admin/internal/client/session"
	"github.com/mokjang/youth-admin/internal/core/domain"
)

// Decision is the outcome for one request. The zero value is never returned
// by Decide; consumers must treat it, and any value they do not know, as an error.
type Decision uint8

const (
	decisionUnknown Decision = iota
	DecisionLoading
	DecisionRedirectLogin
	DecisionAccessDenied
	DecisionPendingApproval
	DecisionRender
)

var ErrUnknownDecision = errors.New("guard: unknown decision")

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionRedirectLogin:
		return "redirect-login"
	case DecisionAccessDenied:
		return "access-denied"
	case DecisionPendingApproval:
		return "pending-approval"
	case DecisionRender:
		return "render"
	}
	return fmt.Sprintf("decision(%d)", uint8(d))
}

// Requirement is what a route demands of the session user.
type Requirement struct {
	// Role, when valid, must equal the user's role exactly.
	Role domain.Role
}

// AnyUser admits every logged-in, approved user.
func AnyUser() Requirement { return Requirement{} }

// RequireRole admits only users holding r.
func RequireRole(r domain.Role) Requirement { return Requirement{Role: r} }

type rule struct {
	decision Decision
	applies  func(st session.State, req Requirement) bool
}

// rules is evaluated top to bottom and the first match wins. A session that
// failed to load counts as no session.
var rules = []rule{
	{DecisionLoading, func(st session.State, _ Requirement) bool {
		return st.Loading
	}},
	{DecisionRedirectLogin, func(st session.State, _ Requirement) bool {
		return st.User == nil
	}},
	{DecisionAccessDenied, func(st session.State, req Requirement) bool {
		return req.Role.Valid() && st.User.Role != req.Role
	}},
	{DecisionPendingApproval, func(st session.State, _ Requirement) bool {
		return st.User.PendingApproval()
	}},
}

// Decide returns the first decision whose rule applies, or DecisionRender.
func Decide(st session.State, req Requirement) Decision {
	for _, r := range rules {
		if r.applies(st, req) {
			return r.decision
		}
	}
	return DecisionRender
}

// Precedence lists the decisions in the order Decide checks them.
func Precedence() []Decision {
	out := make([]Decision, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.decision)
	}
	return append(out, DecisionRender)
}

// Validate reports ErrUnknownDecision for values outside the known set.
func Validate(d Decision) error {
	switch d {
	case DecisionLoading, DecisionRedirectLogin, DecisionAccessDenied, DecisionPendingApproval, DecisionRender:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownDecision, d)
}
