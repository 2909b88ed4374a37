package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/wiki-moderation/internal/auth"
	"github.com/spec-kit/wiki-moderation/internal/config"
	"github.com/spec-kit/wiki-moderation/internal/domain"
	apperrors "github.com/spec-kit/wiki-moderation/pkg/util/errorutil"
)

// AuthService issues tokens for the accounts configured in AUTH_ACCOUNTS.
type AuthService struct {
	accounts map[string]domain.Account
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service from configuration.
func NewAuthService(cfg config.AuthConfig, tokens *auth.TokenManager) (*AuthService, error) {
	accounts, err := cfg.ParseAccounts()
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	byName := make(map[string]domain.Account, len(accounts))
	for _, account := range accounts {
		if err := auth.CheckHashCost(account.PasswordHash, cfg.BcryptMinCost); err != nil {
			return nil, fmt.Errorf("account %q: %w", account.Name, err)
		}
		byName[strings.ToLower(account.Name)] = account
	}
	return &AuthService{accounts: byName, tokenMgr: tokens}, nil
}

// Login authenticates an account and returns a role-bearing token.
func (s *AuthService) Login(_ context.Context, name, password string) (*domain.Account, string, time.Time, error) {
	account, ok := s.accounts[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(account.Name, account.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return &account, token, exp, nil
}

// Accounts reports how many accounts can log in.
func (s *AuthService) Accounts() int {
	return len(s.accounts)
}
