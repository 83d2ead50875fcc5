// Package auth issues and validates the bearer tokens vendors present when
// pushing readings.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

// Ingestion token policy
//
// Every vendor integration gets a long-lived HS256 token naming the client
// in the subject and, optionally, the station types it may push. A token
// with no kinds may push any type. Tokens cannot be revoked individually;
// rotate INGEST_SIGNING_KEY to invalidate all of them.

// DefaultTokenExpiry is how long ingestion tokens are valid unless the
// issuer asks otherwise.
const DefaultTokenExpiry = 90 * 24 * time.Hour

// Predefined token errors.
var (
	ErrInvalidToken    = errors.New("invalid ingestion token")
	ErrTokenExpired    = errors.New("ingestion token has expired")
	ErrKindNotAllowed  = errors.New("station type not allowed for this token")
	ErrMissingClientID = errors.New("client id is required")
)

// IngestClaims represents the claims in an ingestion token.
type IngestClaims struct {
	jwt.RegisteredClaims

	// Kinds lists the station types the client may push. Empty means all.
	Kinds []string `json:"kinds,omitempty"`
}

// ClientID returns the client the token was issued to.
func (c *IngestClaims) ClientID() string {
	return c.Subject
}

// Allows reports whether the token may push readings of kind.
func (c *IngestClaims) Allows(kind reading.Kind) bool {
	if len(c.Kinds) == 0 {
		return true
	}
	for _, k := range c.Kinds {
		if k == string(kind) {
			return true
		}
	}
	return false
}

// TokenConfig holds configuration for the token service.
type TokenConfig struct {
	// SigningKey is the secret key used to sign tokens.
	SigningKey string

	// Issuer is the issuer claim for tokens (e.g., "https://weather.stationhub.dev").
	Issuer string

	// Audience is the audience claim for tokens (e.g., "weather-ingest").
	Audience string
}

// TokenService handles ingestion token creation and validation.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
}

// NewTokenService creates a new token service.
func NewTokenService(cfg TokenConfig) *TokenService {
	return &TokenService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
	}
}

// IssueToken creates a token for clientID limited to kinds. A zero ttl uses
// DefaultTokenExpiry.
func (s *TokenService) IssueToken(clientID string, kinds []reading.Kind, ttl time.Duration) (string, time.Time, error) {
	if clientID == "" {
		return "", time.Time{}, ErrMissingClientID
	}
	if ttl <= 0 {
		ttl = DefaultTokenExpiry
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}

	claims := IngestClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   clientID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Kinds: names,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing ingestion token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates an ingestion token and returns its claims.
func (s *TokenService) ValidateToken(tokenString string) (*IngestClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IngestClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*IngestClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
