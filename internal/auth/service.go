package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Service issues, validates, and revokes admin authentication tokens.
type Service struct {
	db         *sql.DB
	tokenTTL   time.Duration
	headerName string
}

// NewService constructs an auth service with the supplied token lifetime.
func NewService(db *sql.DB, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		db:         db,
		tokenTTL:   ttl,
		headerName: "Authorization",
	}
}

// IssueToken mints a new random token for the admin and persists it.
func (s *Service) IssueToken(ctx context.Context, adminID int64) (string, error) {
	if adminID <= 0 {
		return "", errors.New("invalid admin id")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	for i := 0; i < 5; i++ {
		token, err := generateToken()
		if err != nil {
			return "", err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO admin_tokens (token, admin_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
			token, adminID, now, expiresAt,
		)
		if err == nil {
			return token, nil
		}
	}
	return "", errors.New("could not issue token")
}

// ValidateToken verifies the token exists and has not expired, returning the
// admin id.
func (s *Service) ValidateToken(ctx context.Context, authToken string) (int64, error) {
	if authToken == "" {
		return 0, errors.New("token required")
	}
	var adminID int64
	var expires time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT admin_id, expires_at FROM admin_tokens WHERE token = ?`, authToken,
	).Scan(&adminID, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errors.New("invalid token")
		}
		return 0, fmt.Errorf("lookup token: %w", err)
	}
	if time.Now().UTC().After(expires) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM admin_tokens WHERE token = ?`, authToken)
		return 0, errors.New("token expired")
	}
	return adminID, nil
}

// RevokeToken deletes a single token.
func (s *Service) RevokeToken(ctx context.Context, authToken string) error {
	if authToken == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM admin_tokens WHERE token = ?`, authToken); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// RevokeAdminTokens removes all tokens belonging to the admin.
func (s *Service) RevokeAdminTokens(ctx context.Context, adminID int64) error {
	if adminID <= 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM admin_tokens WHERE admin_id = ?`, adminID); err != nil {
		return fmt.Errorf("revoke admin tokens: %w", err)
	}
	return nil
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
