package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/pkg/config"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type grantStore interface {
	Active(ctx context.Context, schoolID int64, staffID string) (bool, error)
}

// AuthService validates access tokens for the admin surface. Tokens are
// issued by the identity service; this side only verifies signatures and
// checks the grant registry so revoked staff lose access before expiry.
type AuthService struct {
	grants grantStore
	logger *zap.Logger
	cfg    config.JWTConfig
}

// NewAuthService constructs an AuthService. grants may be nil, in which case
// revocation checks are skipped.
func NewAuthService(grants grantStore, logger *zap.Logger, cfg config.JWTConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{grants: grants, logger: logger, cfg: cfg}
}

// ValidateToken parses and verifies an access token, then confirms the
// (school, staff) grant is still active.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	if s.grants != nil {
		active, err := s.grants.Active(ctx, claims.SchoolID, claims.UserID)
		if err != nil {
			// Redis being down must not lock every admin out.
			s.logger.Warn("grant check unavailable", zap.Error(err))
		} else if !active {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "access grant revoked")
		}
	}

	return claims, nil
}

// IssueToken signs an access token for a staff member. Exposed for local
// development and the test suite; production tokens come from the identity
// service.
func (s *AuthService) IssueToken(staffID string, schoolID int64, role models.UserRole, email string) (string, error) {
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID:   staffID,
		SchoolID: schoolID,
		Role:     role,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
