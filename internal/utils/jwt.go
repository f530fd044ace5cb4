// Package utils provides token creation, password hashing and token
// digests.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kehila/community-auth/internal/model"
)

// Validation failures surfaced to callers as 401.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the payload of an access token.  The JSON names are the ones
// existing clients already decode.
type Claims struct {
	UserID           string        `json:"userId"`
	Email            string        `json:"email"`
	RoleID           int           `json:"role_id"`
	AllowedResources []model.Grant `json:"allowedResources,omitempty"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived opaque token.  Raw goes back to the
// client; only HashRefreshRaw(Raw) is persisted.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// TokenIssuer signs and validates access tokens and mints refresh tokens.
// The secret is fixed at construction; nothing mutates it afterwards.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer builds an issuer for the given HMAC secret and lifetimes.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *i
	cp.now = now
	return &cp
}

// Now is the issuer's notion of the current time.
func (i *TokenIssuer) Now() time.Time { return i.now() }

// IssueAccessToken signs claims with HS256 and a fixed lifetime.  Any
// registered time claims already present are overwritten.
func (i *TokenIssuer) IssueAccessToken(claims Claims) (AccessToken, error) {
	now := i.now()
	exp := now.Add(i.accessTTL)
	claims.Subject = claims.UserID
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(exp)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ValidateAccessToken checks signature and expiry and returns the claims.
// Expiry yields ErrExpiredToken; everything else yields ErrInvalidToken.
func (i *TokenIssuer) ValidateAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueRefreshToken returns a cryptographically secure random token that
// carries no data, and its expiration time.
func (i *TokenIssuer) IssueRefreshToken() (RefreshToken, error) {
	raw, err := RandomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return RefreshToken{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return RefreshToken{Raw: raw, Exp: i.now().Add(i.refreshTTL)}, nil
}

// HashRefreshRaw returns the SHA‑256 hex digest of a raw opaque token.  It
// is used for refresh and password reset tokens alike.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RandomHex returns n bytes of crypto/rand data hex-encoded.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
