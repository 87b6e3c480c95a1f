package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSubject is returned when issuing for an empty subject id or
	// parsing an empty token string.
	ErrInvalidSubject = errors.New("invalid subject")
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token signature is fine but the
	// token is past its expiry. Callers map this to a distinct response.
	ErrExpiredToken = errors.New("token is expired")
)

type Claims struct {
	Sub string `json:"sub"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with a process-wide secret.
// The secret is fixed at construction and never changes afterwards.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Issue signs a token binding the subject id to [now, now+ttl].
func (c *Codec) Issue(sub string, ttl time.Duration) (string, error) {
	if sub == "" {
		return "", ErrInvalidSubject
	}
	now := time.Now()
	claims := Claims{
		Sub: sub,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{"luxsuv-identity"},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry of a token. Expiry failures and
// signature/structure failures are reported as distinct errors.
func (c *Codec) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidSubject
	}
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
