package jwttoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	identity "certis/internal/identity/models"
	dErrors "certis/pkg/domain-errors"
)

// TokenClaims represents the JWT claims for our bearer tokens.
// HolderCode is present only for holder-class identities.
type TokenClaims struct {
	IdentityID string `json:"identity_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	HolderCode string `json:"holder_code,omitempty"`
	jwt.RegisteredClaims
}

// Service handles bearer token creation and validation.
// Validation has no side effects and is safe for concurrent use.
type Service struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
}

const defaultTokenTTL = 24 * time.Hour

// New constructs a Service signing HS256 tokens with the given key.
// A non-positive ttl falls back to the 24h default.
func New(signingKey string, issuer string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		tokenTTL:   ttl,
	}
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.tokenTTL
}

// Generate issues a signed token encoding identity id, email, role, and
// holder code where applicable.
func (s *Service) Generate(identityID string, email string, role identity.Role, holderCode string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		IdentityID: identityID,
		Email:      email,
		Role:       string(role),
		HolderCode: holderCode,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        hex.EncodeToString(b),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Validate verifies signature and expiry. Expired tokens fail with
// token_expired and anything else malformed with token_invalid, so
// callers can prompt re-login versus reject outright.
func (s *Service) Validate(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "empty token")
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeTokenExpired, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token")
	}

	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token claims")
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "invalid token issuer")
	}

	return claims, nil
}
