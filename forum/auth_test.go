package forum

import (
	"context"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(t *testing.T) (*Gate, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewGate(store, scs.New()), store
}

func TestAuthenticateLocal(t *testing.T) {
	gate, store := newTestGate(t)
	ctx := context.Background()

	registered, err := gate.Register(ctx, "alice", "alice@example.com", "Aa1!aa")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "correct credentials", username: "alice", password: "Aa1!aa"},
		{name: "wrong password", username: "alice", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "unknown username", username: "bob", password: "Aa1!aa", wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := gate.Authenticate(ctx, LocalCredentials{
				Username: tt.username,
				Password: tt.password,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, registered.ID, user.ID)
		})
	}

	assert.Equal(t, 1, store.userCount())
}

func TestRegisterDuplicateUsername(t *testing.T) {
	gate, store := newTestGate(t)
	ctx := context.Background()

	_, err := gate.Register(ctx, "alice", "alice@example.com", "Aa1!aa")
	require.NoError(t, err)

	_, err = gate.Register(ctx, "alice", "other@example.com", "Bb2!bb")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Equal(t, 1, store.userCount())
}

// A local login against a Google-only account must read as bad credentials,
// not an internal error from comparing against a missing hash.
func TestAuthenticateLocalAgainstGoogleOnlyAccount(t *testing.T) {
	gate, _ := newTestGate(t)
	ctx := context.Background()

	googleUser, err := gate.Authenticate(ctx, GoogleIdentity{Subject: "109876"})
	require.NoError(t, err)
	require.Nil(t, googleUser.PasswordHash)

	user, err := gate.Authenticate(ctx, LocalCredentials{
		Username: googleUser.Username,
		Password: "anything",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, user)
}

// If a local account already owns the derived g-<subject> username, the
// Google login still gets its own user under a suffixed username.
func TestGoogleFindOrCreateUsernameCollision(t *testing.T) {
	gate, store := newTestGate(t)
	ctx := context.Background()

	local, err := gate.Register(ctx, "g-109876", "taken@example.com", "Aa1!aa")
	require.NoError(t, err)

	user, err := gate.Authenticate(ctx, GoogleIdentity{Subject: "109876"})
	require.NoError(t, err)
	require.NotNil(t, user.GoogleID)
	assert.NotEqual(t, local.ID, user.ID)
	assert.NotEqual(t, "g-109876", user.Username)
	assert.Equal(t, 2, store.userCount())
}

func TestAuthenticateGoogleFindOrCreate(t *testing.T) {
	gate, store := newTestGate(t)
	ctx := context.Background()

	first, err := gate.Authenticate(ctx, GoogleIdentity{Subject: "109876"})
	require.NoError(t, err)
	require.NotNil(t, first.GoogleID)
	assert.Equal(t, "109876", *first.GoogleID)

	// A second login with the same subject reuses the user.
	second, err := gate.Authenticate(ctx, GoogleIdentity{Subject: "109876"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.userCount())
}

func TestAuthenticateUnsupportedMethod(t *testing.T) {
	gate, _ := newTestGate(t)

	user, err := gate.Authenticate(context.Background(), nil)
	assert.Error(t, err)
	assert.Nil(t, user)
}
