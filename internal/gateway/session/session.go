// Package session defines how the gateway recognizes callers. Token
// issuance and verification belong to the identity service; the gateway
// only consumes a Verifier.
package session

import (
	"context"
	"errors"
	"strings"
)

// Session identifies an authenticated caller. Permission is "U" for a
// regular user, "M" for a manager, "A" for an administrator.
type Session struct {
	Username   string
	Permission string
}

// CanManageEvents reports whether the caller may create events and change
// ticket inventory.
func (s Session) CanManageEvents() bool {
	return s.Permission == "A" || s.Permission == "M"
}

var ErrInvalidSession = errors.New("invalid session")

// Verifier resolves a bearer token to a session.
type Verifier interface {
	Verify(ctx context.Context, token string) (Session, error)
}

// StaticVerifier resolves tokens from a fixed table. It stands in for the
// identity service in development and tests.
type StaticVerifier map[string]Session

func (v StaticVerifier) Verify(_ context.Context, token string) (Session, error) {
	s, ok := v[token]
	if !ok {
		return Session{}, ErrInvalidSession
	}
	return s, nil
}

// ParseStatic builds a StaticVerifier from "token=user:perm" entries
// separated by commas, e.g. "t1=alice:U,t2=bob:A".
func ParseStatic(entries string) StaticVerifier {
	v := StaticVerifier{}
	for _, entry := range strings.Split(entries, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		token, rest, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		user, perm, ok := strings.Cut(rest, ":")
		if !ok {
			perm = "U"
		}
		v[token] = Session{Username: user, Permission: perm}
	}
	return v
}
