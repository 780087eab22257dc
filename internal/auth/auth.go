// Package auth is the authentication collaborator. The service core never
// inspects credentials itself; it asks an Authenticator and treats the
// result as opaque. The default implementation is a static allow-list read
// from config, suitable for the warehouse floor deployment it replaces.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrDenied is returned when credentials are not accepted.
var ErrDenied = errors.New("authentication denied")

// Session identifies an authenticated user.
type Session struct {
	Token    uuid.UUID `json:"token"`
	Username string    `json:"username"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Authenticator validates credentials and issues sessions.
type Authenticator interface {
	Authenticate(ctx context.Context, username, secret string) (*Session, error)
}

// staticAuthenticator implements Authenticator over a fixed allow-list
type staticAuthenticator struct {
	users map[string]string
}

// NewStaticAuthenticator creates an allow-list authenticator. Usernames are
// matched case-insensitively; sessions carry the canonical upper-case name
// the queue attributes work to.
func NewStaticAuthenticator(users map[string]string) Authenticator {
	normalized := make(map[string]string, len(users))
	for name, secret := range users {
		normalized[strings.ToUpper(name)] = secret
	}
	return &staticAuthenticator{users: normalized}
}

// Authenticate checks the allow-list and issues a session
func (a *staticAuthenticator) Authenticate(_ context.Context, username, secret string) (*Session, error) {
	name := strings.ToUpper(strings.TrimSpace(username))
	if name == "" || secret == "" {
		return nil, ErrDenied
	}

	expected, ok := a.users[name]
	if !ok || expected != secret {
		return nil, ErrDenied
	}

	return &Session{
		Token:    uuid.New(),
		Username: name,
		IssuedAt: time.Now().UTC(),
	}, nil
}
