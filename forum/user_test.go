package forum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("Aa1!aa")
	require.NoError(t, err)

	ok, err := VerifyPassword(hash, "Aa1!aa")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewUser(t *testing.T) {
	hash, err := HashPassword("Aa1!aa")
	require.NoError(t, err)

	u := NewUser("alice", "alice@example.com", hash)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEmpty(t, u.PasswordHash)
	assert.Nil(t, u.GoogleID)
}

func TestNewGoogleUser(t *testing.T) {
	u := NewGoogleUser("109876")
	assert.NotEmpty(t, u.ID)
	require.NotNil(t, u.GoogleID)
	assert.Equal(t, "109876", *u.GoogleID)
	assert.Equal(t, "g-109876", u.Username)
	assert.Nil(t, u.PasswordHash)
}
