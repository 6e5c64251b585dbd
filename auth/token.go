package auth

import (
	"fmt"
	"time"

	"facad/config"
	"facad/repository"

	"github.com/golang-jwt/jwt/v5"
)

// TokenValidity bounds how long an issued session cookie is accepted.
// Sessions are short because the institutional identity provider is the
// source of truth, not this service.
const TokenValidity = 12 * time.Hour

type Claims struct {
	UserId      int
	Permissions []repository.Permission
	Exp         int64
}

// FromJWTClaims extracts the session claims, rejecting tokens whose
// payload does not carry them in the expected shape.
func (claims *Claims) FromJWTClaims(jwtClaims jwt.Claims) error {
	mapClaims, ok := jwtClaims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("unexpected claims payload")
	}
	userId, ok := mapClaims["user_id"].(float64)
	if !ok {
		return fmt.Errorf("token carries no user id")
	}
	exp, ok := mapClaims["exp"].(float64)
	if !ok {
		return fmt.Errorf("token carries no expiry")
	}
	claims.UserId = int(userId)
	claims.Exp = int64(exp)
	claims.Permissions = []repository.Permission{}
	if rawPermissions, ok := mapClaims["permissions"].([]interface{}); ok {
		for _, rawPermission := range rawPermissions {
			if permission, ok := rawPermission.(string); ok {
				claims.Permissions = append(claims.Permissions, permission)
			}
		}
	}
	return nil
}

func (claims *Claims) Valid() error {
	if time.Now().Unix() > claims.Exp {
		return jwt.ErrTokenExpired
	}
	return nil
}

func CreateToken(user *repository.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{
			"user_id":     user.Id,
			"permissions": user.Permissions,
			"exp":         time.Now().Add(TokenValidity).Unix(),
		})
	return token.SignedString([]byte(config.Env().JWTSecret))
}

func ParseToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(config.Env().JWTSecret), nil
	})
}
