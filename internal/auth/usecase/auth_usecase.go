package usecase

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"inboxhub-backend/pkg/config"
)

// AuthUsecase validates bearer tokens issued by the identity provider.
// Accounts live there; this service only needs the user id out of the claims.
type AuthUsecase interface {
	ValidateToken(tokenString string) (string, error)
}

// authUsecase implements AuthUsecase
type authUsecase struct {
	secret string
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(cfg *config.Config) AuthUsecase {
	return &authUsecase{secret: cfg.JWTSecret}
}

func (u *authUsecase) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(u.secret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	if userID, ok := claims["user_id"].(string); ok && userID != "" {
		return userID, nil
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	return "", errors.New("invalid token claims")
}
