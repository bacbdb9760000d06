// Package services implements the credential and session flows: the session
// issuer shared by password and MFA login, the auth engine, the MFA engine
// and the option catalogue.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/server/auth"
	"github.com/dmitrijs2005/lemonauth/internal/server/config"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/repomanager"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionIssuer is the only place sessions are created, so every login path
// hands out tokens of the same shape and lifetime.
type SessionIssuer struct {
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

func NewSessionIssuer(cfg *config.Config) *SessionIssuer {
	return &SessionIssuer{
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

// AccessToken signs a plain access token for userID.
func (i *SessionIssuer) AccessToken(userID string) (string, error) {
	token, err := auth.GenerateToken(userID, i.jwtSecret, i.accessTokenValidityDuration)
	if err != nil {
		return "", fmt.Errorf("error generating access token: %w", err)
	}
	return token, nil
}

// Issue mints an access token and a refresh token, stores the session under
// the refresh token's digest and records the login time.
func (i *SessionIssuer) Issue(ctx context.Context, store repomanager.Store, userID string) (*TokenPair, error) {
	accessToken, err := i.AccessToken(userID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := auth.RefreshToken()
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	err = store.WithinTx(ctx, func(ctx context.Context, s repomanager.Store) error {
		if err := s.Sessions().Create(ctx, userID, auth.HashToken(refreshToken), i.refreshTokenValidityDuration); err != nil {
			return fmt.Errorf("error saving session: %w", err)
		}
		if err := s.Users().TouchLastLogin(ctx, userID, i.now()); err != nil {
			return fmt.Errorf("error updating last login: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
