package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/wiki-moderation/internal/auth"
	"github.com/spec-kit/wiki-moderation/internal/config"
	"github.com/spec-kit/wiki-moderation/internal/domain"
	apperrors "github.com/spec-kit/wiki-moderation/pkg/util/errorutil"
)

func TestAuthServiceLogin(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("hunter2", 4)
	require.NoError(t, err)

	tokens := auth.NewTokenManager("secret", 10)
	svc, err := NewAuthService(config.AuthConfig{Accounts: []string{"Mod1:moderator:" + hash}}, tokens)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Accounts())

	account, token, _, err := svc.Login(context.Background(), "mod1", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, account.Role)

	claims, err := tokens.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "Mod1", claims.Subject)

	_, _, _, err = svc.Login(context.Background(), "mod1", "wrong")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	_, _, _, err = svc.Login(context.Background(), "nobody", "hunter2")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

func TestNewAuthServiceRejectsBadAccounts(t *testing.T) {
	t.Parallel()

	_, err := NewAuthService(config.AuthConfig{Accounts: []string{"broken"}}, auth.NewTokenManager("s", 1))
	assert.Error(t, err)
}

func TestNewAuthServiceRejectsWeakHashes(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("hunter2", 4)
	require.NoError(t, err)

	_, err = NewAuthService(config.AuthConfig{Accounts: []string{"mod1:moderator:" + hash}, BcryptMinCost: 10}, auth.NewTokenManager("s", 1))
	assert.ErrorContains(t, err, "below the minimum")

	_, err = NewAuthService(config.AuthConfig{Accounts: []string{"mod1:moderator:plaintext"}}, auth.NewTokenManager("s", 1))
	assert.Error(t, err)
}
