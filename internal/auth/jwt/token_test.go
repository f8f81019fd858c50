package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager(TokenConfig{AccessSecret: []byte("secret")})
	id := uuid.New()

	token, err := m.GenerateAccessToken(Subject{ID: id, Name: "Ada", Email: "ada@example.com", Role: "admin"})
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "Ada", claims.Name)
}

func TestManager_RejectsForeignSecret(t *testing.T) {
	issuer := NewManager(TokenConfig{AccessSecret: []byte("one")})
	verifier := NewManager(TokenConfig{AccessSecret: []byte("two")})

	token, err := issuer.GenerateAccessToken(Subject{ID: uuid.New(), Role: "user"})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_Expired(t *testing.T) {
	m := NewManager(TokenConfig{AccessSecret: []byte("secret"), AccessTTL: -time.Minute})

	token, err := m.GenerateAccessToken(Subject{ID: uuid.New(), Role: "user"})
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_Garbage(t *testing.T) {
	m := NewManager(TokenConfig{AccessSecret: []byte("secret")})
	_, err := m.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
