package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quartermaster/internal/db"
	"quartermaster/internal/logger"
)

// refreshBuffer is how close to expiry a token is refreshed early.
const refreshBuffer = 60 * time.Second

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired, log in again")
)

// ProfileStore is the part of the local store a session needs.
type ProfileStore interface {
	AddCharacter(c db.Character) error
	UpdateCharacter(c db.Character) error
	SaveCurrentCharacter(c db.Character) error
	CurrentCharacter() (*db.Character, error)
	ClearCurrentCharacter() error
}

// TokenRefresher exchanges a refresh token for a new token pair.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// Sessions tracks the logged-in character and keeps its token fresh.
type Sessions struct {
	store ProfileStore
	sso   TokenRefresher
	log   *zap.Logger
	now   func() time.Time
}

// NewSessions creates a session tracker over store.
func NewSessions(store ProfileStore, sso TokenRefresher) *Sessions {
	return &Sessions{store: store, sso: sso, log: logger.Named("Auth"), now: time.Now}
}

// Login records c as the current character and upserts it into the
// profile list.
func (s *Sessions) Login(c db.Character) error {
	if err := s.store.SaveCurrentCharacter(c); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := s.store.AddCharacter(c); err != nil {
		if errors.Is(err, db.ErrCharacterLimit) {
			s.log.Warn("profile list full, character not added", zap.Int64("character_id", c.CharacterID))
			return nil
		}
		return fmt.Errorf("add character: %w", err)
	}
	s.log.Info("logged in", zap.String("character", c.CharacterName), zap.Int64("character_id", c.CharacterID))
	return nil
}

// Logout forgets the current character. Stored profiles are kept.
func (s *Sessions) Logout() error {
	if err := s.store.ClearCurrentCharacter(); err != nil {
		return err
	}
	s.log.Info("logged out")
	return nil
}

// Current returns the logged-in character or ErrNotLoggedIn.
func (s *Sessions) Current() (*db.Character, error) {
	c, err := s.store.CurrentCharacter()
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotLoggedIn
	}
	return c, nil
}

// EnsureValidToken returns an access token good for at least refreshBuffer,
// refreshing it when needed. A failed refresh logs the character out.
func (s *Sessions) EnsureValidToken(ctx context.Context) (string, *db.Character, error) {
	c, err := s.Current()
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	if now.Before(c.TokenExpiry.Add(-refreshBuffer)) {
		return c.AccessToken, c, nil
	}

	s.log.Info("refreshing token", zap.String("character", c.CharacterName))
	tok, err := s.sso.RefreshToken(ctx, c.RefreshToken)
	if err != nil {
		s.log.Warn("token refresh failed, logging out", zap.Int64("character_id", c.CharacterID), zap.Error(err))
		if clearErr := s.store.ClearCurrentCharacter(); clearErr != nil {
			s.log.Error("clear session", zap.Error(clearErr))
		}
		return "", nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	c.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		c.RefreshToken = tok.RefreshToken
	}
	c.TokenExpiry = tok.ExpiresAt(now)
	if err := s.store.SaveCurrentCharacter(*c); err != nil {
		return "", nil, fmt.Errorf("save session: %w", err)
	}
	if err := s.store.UpdateCharacter(*c); err != nil {
		return "", nil, fmt.Errorf("update character: %w", err)
	}
	return c.AccessToken, c, nil
}
