// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// SessionCookieName is the cookie carrying the anonymous session token.
const SessionCookieName = "sid"

// Sessions issues and verifies anonymous session tokens. The token's "sub" is the
// session id: one per browser, shared by all of its tabs, stable across reconnects.
type Sessions struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration
}

// NewSessions derives the ed25519 signing key from secret so tokens survive restarts.
// An empty secret generates a fresh random key pair (tokens die with the process).
// ttl of 0 issues tokens without an exp claim.
func NewSessions(secret string, ttl time.Duration) (*Sessions, error) {
	var (
		pub  ed25519.PublicKey
		priv ed25519.PrivateKey
		err  error
	)
	if secret == "" {
		pub, priv, err = ed25519.GenerateKey(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
		}
	} else {
		seed := make([]byte, ed25519.SeedSize)
		kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("menupick session signing key"))
		if _, err := io.ReadFull(kdf, seed); err != nil {
			return nil, fmt.Errorf("failed to derive session key: %w", err)
		}
		priv = ed25519.NewKeyFromSeed(seed)
		pub = priv.Public().(ed25519.PublicKey)
	}
	return &Sessions{privateKey: priv, publicKey: pub, ttl: ttl}, nil
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// CreateJWT signs a token with "sub" = sessionID.
func (s *Sessions) CreateJWT(sessionID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": sessionID,
		"iat": time.Now().Unix(),
	}
	if s.ttl != 0 {
		claims["exp"] = time.Now().Add(s.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// AuthenticateJWT verifies a token and returns its session id.
func (s *Sessions) AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return sub, nil
}
