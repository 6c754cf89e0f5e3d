package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func GenerateToken(userID string, expiration time.Duration, secret string) (string, error) {
	return generate(Claims{UserID: userID}, expiration, secret)
}

// GenerateIdentityToken carries the collaborator's display identity so
// the websocket handshake can echo it in the auth ack.
func GenerateIdentityToken(userID, name, email string, expiration time.Duration, secret string) (string, error) {
	return generate(Claims{UserID: userID, Name: name, Email: email}, expiration, secret)
}

func GenerateRefreshToken(userID string, expiration time.Duration, secret string) (string, error) {
	return generate(Claims{UserID: userID}, expiration, secret)
}

func generate(claims Claims, expiration time.Duration, secret string) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
