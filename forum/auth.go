// forum/auth.go
package forum

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexedwards/scs/v2"
)

// Session keys. The principal reference is the only thing the session owns;
// the user record itself is loaded fresh on every request.
const (
	sessionKeyUserID     = "userID"
	sessionKeyFlash      = "flash"
	sessionKeyOAuthState = "oauthState"
)

// AuthMethod is the tagged variant passed to Authenticate: local credentials
// or an already-verified external identity.
type AuthMethod interface {
	authMethod()
}

type LocalCredentials struct {
	Username string
	Password string
}

func (LocalCredentials) authMethod() {}

// GoogleIdentity carries the provider's stable subject id, obtained from a
// verified OAuth token exchange.
type GoogleIdentity struct {
	Subject string
}

func (GoogleIdentity) authMethod() {}

// Gate verifies credentials and owns the session bound to each browser.
type Gate struct {
	users   UserStore
	session *scs.SessionManager
}

func NewGate(users UserStore, session *scs.SessionManager) *Gate {
	return &Gate{users: users, session: session}
}

// Authenticate resolves a method to a user or an auth error. It does not
// touch the session; callers decide whether to Establish one.
func (g *Gate) Authenticate(ctx context.Context, method AuthMethod) (*User, error) {
	switch m := method.(type) {
	case LocalCredentials:
		user, err := g.users.GetUserByUsername(ctx, m.Username)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrInvalidCredentials
			}
			return nil, err
		}
		if len(user.PasswordHash) == 0 {
			// Google-only account; there is no local credential to match.
			return nil, ErrInvalidCredentials
		}
		ok, err := VerifyPassword(user.PasswordHash, m.Password)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidCredentials
		}
		return user, nil
	case GoogleIdentity:
		return g.users.FindOrCreateByGoogleID(ctx, m.Subject)
	default:
		return nil, fmt.Errorf("unsupported auth method %T", method)
	}
}

// Register creates a local account. The caller establishes the session
// afterwards, which is what gives signup its auto-login behavior.
func (g *Gate) Register(ctx context.Context, username, email, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := NewUser(username, email, hash)
	if err := g.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Establish binds the session to a user. The token is renewed first so a
// pre-login session id never survives authentication.
func (g *Gate) Establish(ctx context.Context, userID string) error {
	if err := g.session.RenewToken(ctx); err != nil {
		return err
	}
	g.session.Put(ctx, sessionKeyUserID, userID)
	return nil
}

// Destroy ends the current session. Destroying a session that does not exist
// is not an error.
func (g *Gate) Destroy(ctx context.Context) error {
	return g.session.Destroy(ctx)
}

func (g *Gate) IsAuthenticated(ctx context.Context) bool {
	return g.session.Exists(ctx, sessionKeyUserID)
}

// Principal loads the user bound to the current session. Returns ErrNotFound
// when the request carries no principal.
func (g *Gate) Principal(ctx context.Context) (*User, error) {
	id := g.session.GetString(ctx, sessionKeyUserID)
	if id == "" {
		return nil, ErrNotFound
	}
	return g.users.GetUserByID(ctx, id)
}

// Flash stores a one-shot message for the next render.
func (g *Gate) Flash(ctx context.Context, message string) {
	g.session.Put(ctx, sessionKeyFlash, message)
}

// PopFlash returns and clears the pending flash message, if any.
func (g *Gate) PopFlash(ctx context.Context) string {
	return g.session.PopString(ctx, sessionKeyFlash)
}

// SetOAuthState stashes the state nonce for the pending authorization
// round-trip; PopOAuthState consumes it on the callback.
func (g *Gate) SetOAuthState(ctx context.Context, state string) {
	g.session.Put(ctx, sessionKeyOAuthState, state)
}

func (g *Gate) PopOAuthState(ctx context.Context) string {
	return g.session.PopString(ctx, sessionKeyOAuthState)
}
