// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Signer issues and verifies ed25519-signed session tokens whose "sub" claim
// is a participant id.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	// expiry of issued tokens; zero means tokens never expire
	expiry time.Duration
}

// ParseExpiry reads a TOKEN_EXPIRE_TIME value: "", "0" or "never" mean no
// expiry, anything else is a time.Duration.
func ParseExpiry(s string) (time.Duration, error) {
	if s == "" || s == "0" || s == "never" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// NewSigner generates a fresh ed25519 key pair at runtime.
func NewSigner(expiry time.Duration) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Signer{privateKey: priv, publicKey: pub, expiry: expiry}, nil
}

// LoadSigner reads raw ed25519 private/public keys from file.
func LoadSigner(privatePath, publicPath string, expiry time.Duration) (*Signer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("key files do not hold raw ed25519 keys")
	}
	return &Signer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		expiry:     expiry,
	}, nil
}

// WriteKeys stores the key pair of s as raw bytes, readable by LoadSigner.
func (s *Signer) WriteKeys(privatePath, publicPath string) error {
	if err := os.WriteFile(privatePath, s.privateKey, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(publicPath, s.publicKey, 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}

// CreateJWT creates a signed token with "sub" = participantID and, when an
// expiry is configured, "exp" = now + expiry.
func (s *Signer) CreateJWT(participantID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": participantID,
		"iat": time.Now().Unix(),
	}
	if s.expiry > 0 {
		claims["exp"] = time.Now().Add(s.expiry).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// AuthenticateJWT verifies a token and returns its "sub" claim.
func (s *Signer) AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !t.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return sub, nil
}
