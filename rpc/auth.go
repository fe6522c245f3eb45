package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("rpc: missing bearer token")
	ErrInvalidToken = errors.New("rpc: invalid token")
)

// Authenticator verifies partner bearer tokens. Tokens are HS256 JWTs whose
// subject is the caller's hex address; the engines never see the token, only
// the address it resolves to.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	nowFn  func() time.Time
}

// NewAuthenticator builds a verifier around a shared signing secret.
func NewAuthenticator(secret []byte, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Authenticator{secret: secret, ttl: ttl, nowFn: time.Now}
}

// SetNowFunc overrides the clock for tests.
func (a *Authenticator) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	a.nowFn = now
}

// IssueToken mints a token for the given address, valid for the configured
// TTL.
func (a *Authenticator) IssueToken(addr [20]byte) (string, error) {
	now := a.nowFn()
	claims := jwt.RegisteredClaims{
		Subject:   encodeAddress(addr),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Authenticate resolves the caller address from the request's Authorization
// header.
func (a *Authenticator) Authenticate(r *http.Request) ([20]byte, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return [20]byte{}, ErrNoToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return [20]byte{}, ErrNoToken
	}
	return a.Verify(strings.TrimSpace(parts[1]))
}

// Verify parses and validates a raw token string, returning the subject
// address.
func (a *Authenticator) Verify(raw string) ([20]byte, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return a.nowFn() }))
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return [20]byte{}, ErrInvalidToken
	}
	addr, err := decodeAddress(claims.Subject)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return addr, nil
}
