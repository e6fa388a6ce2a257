package blob

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PresignTTL matches the 30-minute expiry of generated download links.
const PresignTTL = 30 * time.Minute

var ErrTokenInvalid = errors.New("download token invalid or expired")

// Signer issues and verifies download tokens for object keys.
type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

type downloadClaims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

// Sign returns a token granting read access to key until expiry.
func (s *Signer) Sign(key string, now time.Time) (string, error) {
	claims := downloadClaims{
		Key: key,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(PresignTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing download token: %w", err)
	}
	return signed, nil
}

// Verify checks a token and returns the object key it grants.
func (s *Signer) Verify(tokenString string) (string, error) {
	var claims downloadClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrTokenInvalid
	}
	return claims.Key, nil
}

// PresignedURL builds the download URL for key against baseURL.
func (s *Signer) PresignedURL(baseURL, key string, now time.Time) (string, error) {
	token, err := s.Sign(key, now)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/download?token=%s", baseURL, url.QueryEscape(token)), nil
}
