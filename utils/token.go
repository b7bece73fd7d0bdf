package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"office-chat/model"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller resolved from an access token.
type Identity struct {
	ID   uint
	Role string
	// Otp is set while the second authentication factor is still pending.
	Otp bool
	Exp int64
}

var ErrInvalidToken = errors.New("invalid token")

// ParseToken validates an HS512 access token signed with key and returns its identity.
func ParseToken(token string, key []byte) (*Identity, error) {
	t, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	return ParseIdentity(claims)
}

// ParseIdentity reads id, role, otp and exp claims. The id may be a number or a numeric string.
func ParseIdentity(claims jwt.MapClaims) (*Identity, error) {
	identity := &Identity{Role: model.RoleEmployee}

	switch id := claims["id"].(type) {
	case float64:
		if id >= 1 && id == float64(uint(id)) {
			identity.ID = uint(id)
		}
	case string:
		if n, err := strconv.ParseUint(id, 10, 32); err == nil {
			identity.ID = uint(n)
		}
	}
	if identity.ID == 0 {
		return nil, fmt.Errorf("%w: missing id claim", ErrInvalidToken)
	}

	if role, ok := claims["role"].(string); ok && role != "" {
		identity.Role = role
	}
	if otp, ok := claims["otp"].(bool); ok {
		identity.Otp = otp
	}
	if exp, ok := claims["exp"].(float64); ok {
		identity.Exp = int64(exp)
	}
	return identity, nil
}

// GenerateToken signs an access token for id. Tokens are issued by the
// office platform's auth service; this exists for tests and local tooling.
func GenerateToken(id uint, role string, otp bool, ttl time.Duration, key []byte) (string, error) {
	claims := jwt.MapClaims{}

	claims["id"] = strconv.FormatUint(uint64(id), 10)
	claims["role"] = role
	claims["otp"] = otp
	claims["exp"] = time.Now().Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(key)
}
