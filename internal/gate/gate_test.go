package gate

import (
	"net/url"
	"testing"

	"github.com/bgoutham/limited/internal/session"
)

func TestCheckAuthenticatedRenders(t *testing.T) {
	res := Check(session.StatusAuthenticated, "/portfolio")
	if res.Decision != Render {
		t.Fatalf("expected Render, got %v", res.Decision)
	}
}

func TestCheckAnonymousRedirectsWithReturnPath(t *testing.T) {
	res := Check(session.StatusAnonymous, "/portfolio")
	if res.Decision != Redirect {
		t.Fatalf("expected Redirect, got %v", res.Decision)
	}
	if res.Location != "/login?next=%2Fportfolio" {
		t.Fatalf("unexpected location %q", res.Location)
	}
}

func TestCheckIndeterminateWaits(t *testing.T) {
	for _, status := range []session.Status{session.StatusUninitialized, session.StatusRestoring} {
		res := Check(status, "/portfolio")
		if res.Decision != Wait {
			t.Fatalf("status %v: expected Wait, got %v", status, res.Decision)
		}
	}
}

func TestCheckAnonymousOnLoginPath(t *testing.T) {
	res := Check(session.StatusAnonymous, LoginPath)
	if res.Location != LoginPath {
		t.Fatalf("login path must not chase its own tail, got %q", res.Location)
	}
}

func TestReturnPath(t *testing.T) {
	cases := []struct {
		next string
		want string
	}{
		{"/portfolio", "/portfolio"},
		{"/funds/fund-1", "/funds/fund-1"},
		{"", "/"},
		{"https://evil.example.com", "/"},
		{"//evil.example.com", "/"},
		{"portfolio", "/"},
	}
	for _, tc := range cases {
		q := url.Values{}
		if tc.next != "" {
			q.Set(NextParam, tc.next)
		}
		if got := ReturnPath(q); got != tc.want {
			t.Fatalf("ReturnPath(next=%q) = %q, want %q", tc.next, got, tc.want)
		}
	}
}
