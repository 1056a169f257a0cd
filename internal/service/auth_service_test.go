package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/pkg/config"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type mockGrantStore struct {
	active map[string]bool
	err    error
}

func (m *mockGrantStore) Active(_ context.Context, _ int64, staffID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.active[staffID], nil
}

func authConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test_secret", Expiration: time.Hour}
}

func TestValidateTokenRoundTrip(t *testing.T) {
	grants := &mockGrantStore{active: map[string]bool{"s1": true}}
	svc := NewAuthService(grants, nil, authConfig())

	token, err := svc.IssueToken("s1", 7, models.RoleNameAdmin, "dana@school.org")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.UserID)
	assert.Equal(t, int64(7), claims.SchoolID)
	assert.Equal(t, models.RoleNameAdmin, claims.Role)
}

func TestValidateTokenRejectsRevokedGrant(t *testing.T) {
	grants := &mockGrantStore{active: map[string]bool{}}
	svc := NewAuthService(grants, nil, authConfig())

	token, err := svc.IssueToken("s1", 7, models.RoleNameAdmin, "dana@school.org")
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenGrantStoreOutageFailsOpen(t *testing.T) {
	grants := &mockGrantStore{err: errors.New("redis down")}
	svc := NewAuthService(grants, nil, authConfig())

	token, err := svc.IssueToken("s1", 7, models.RoleNameAdmin, "dana@school.org")
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.NoError(t, err)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := NewAuthService(nil, nil, config.JWTConfig{Secret: "other_secret", Expiration: time.Hour})
	svc := NewAuthService(nil, nil, authConfig())

	token, err := issuer.IssueToken("s1", 7, models.RoleNameAdmin, "dana@school.org")
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewAuthService(nil, nil, authConfig())

	_, err := svc.ValidateToken(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}
