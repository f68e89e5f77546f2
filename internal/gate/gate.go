// Package gate guards participant-only views. The decision is a pure
// function of the session status and the requested path, so both clients
// share one rule: never render protected content before the session has
// resolved, and never redirect based on an indeterminate session.
package gate

import (
	"net/url"

	"github.com/bgoutham/limited/internal/session"
)

// LoginPath is where anonymous visitors are sent.
const LoginPath = "/login"

// NextParam carries the originally requested destination through the login
// redirect, so a successful sign-in can return the visitor where they were
// headed. Best effort: the value does not survive a process restart.
const NextParam = "next"

// Decision is the gate's verdict for a protected view.
type Decision int

const (
	// Wait means the session is still restoring; show a neutral loading
	// state and do not redirect.
	Wait Decision = iota
	// Render means the view may proceed.
	Render
	// Redirect means the visitor must sign in first.
	Redirect
)

// Result pairs a Decision with the redirect location when applicable.
type Result struct {
	Decision Decision
	Location string
}

// Check evaluates the gate for a protected view.
func Check(status session.Status, requestedPath string) Result {
	switch status {
	case session.StatusAuthenticated:
		return Result{Decision: Render}
	case session.StatusAnonymous:
		return Result{Decision: Redirect, Location: loginLocation(requestedPath)}
	default:
		// Uninitialized or restoring.
		return Result{Decision: Wait}
	}
}

func loginLocation(requestedPath string) string {
	if requestedPath == "" || requestedPath == LoginPath {
		return LoginPath
	}
	return LoginPath + "?" + NextParam + "=" + url.QueryEscape(requestedPath)
}

// ReturnPath extracts a safe post-login destination from a login request's
// query values. Only site-relative paths are honoured.
func ReturnPath(query url.Values) string {
	next := query.Get(NextParam)
	if next == "" || next[0] != '/' || (len(next) > 1 && next[1] == '/') {
		return "/"
	}
	return next
}
