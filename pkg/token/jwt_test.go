package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", 1)

	tok, err := m.GenerateToken("citizen-42", RoleCitizen)
	require.NoError(t, err)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "citizen-42", claims.CitizenID)
	assert.Equal(t, RoleCitizen, claims.Role)

	adminTok, err := m.GenerateToken("admin-1", RoleAdmin)
	require.NoError(t, err)
	claims, err = m.VerifyToken(adminTok)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("test-secret", 1)

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := NewJWTManager("other", 1).GenerateToken("citizen-1", RoleCitizen)
		require.NoError(t, err)
		_, err = m.VerifyToken(tok)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := NewJWTManager("test-secret", -1).GenerateToken("citizen-1", RoleCitizen)
		require.NoError(t, err)
		_, err = m.VerifyToken(tok)
		assert.Error(t, err)
	})

	t.Run("missing citizen", func(t *testing.T) {
		tok, err := m.GenerateToken("", RoleCitizen)
		require.NoError(t, err)
		_, err = m.VerifyToken(tok)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.VerifyToken("not-a-token")
		assert.Error(t, err)
	})
}
