package auth

import (
	"errors"
	"fmt"
	"time"

	"qrmenu-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

type SessionKind string

const (
	KindOwner SessionKind = "owner"
	KindStaff SessionKind = "staff"
)

type JWTCustomClaims struct {
	Kind         SessionKind `json:"kind"`
	SubjectID    string      `json:"sid"` // user id for owners, staff id for staff
	RestaurantID string      `json:"restaurant_id"`
	Email        string      `json:"email"`
	Role         models.Role `json:"role"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid or expired token")

func GenerateToken(secret string, claims JWTCustomClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.SubjectID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenStr string) (*JWTCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTCustomClaims)
	if !ok || claims.RestaurantID == "" || claims.SubjectID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
