package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mailroom/internal/config"
	"github.com/spec-kit/mailroom/internal/domain"
)

func testTokenManager(secret string) *TokenManager {
	return NewTokenManager(config.AuthConfig{
		JWTSecret:             secret,
		AccessTokenTTLMinutes: 15,
	})
}

func agentFixture() *domain.Agent {
	return &domain.Agent{
		ID:       "ag-1",
		TenantID: "tn-1",
		Email:    "bob@support.example",
		Role:     domain.AgentRoleAdmin,
	}
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	manager := testTokenManager("s3cret")

	token, expiresAt, err := manager.Issue(agentFixture())
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := manager.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "ag-1", claims.AgentID)
	assert.Equal(t, "tn-1", claims.TenantID)
	assert.Equal(t, domain.AgentRoleAdmin, claims.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := testTokenManager("secret-a").Issue(agentFixture())
	require.NoError(t, err)

	_, err = testTokenManager("secret-b").Parse(token)
	require.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := testTokenManager("s3cret").Parse("not.a.token")
	require.Error(t, err)
}

func TestPasswordHasherRoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(4)
	hash, err := hasher.Hash("hunter2")
	require.NoError(t, err)
	assert.True(t, hasher.Compare(hash, "hunter2"))
	assert.False(t, hasher.Compare(hash, "hunter3"))
}
