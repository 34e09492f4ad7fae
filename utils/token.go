package authUtils

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// SessionTTL bounds the exp claim of minted session tokens.
const SessionTTL = 72 * time.Hour

// GenerateSessionToken mints the opaque token handed out at login. With a
// secret it is an HS256 JWT carrying the role and name; without one it is a
// random UUID. Nothing ever verifies it against a credential.
func GenerateSessionToken(secret, role, name string) (string, error) {
	if secret == "" {
		return uuid.NewString(), nil
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": role,
		"name": name,
		"jti":  uuid.NewString(),
		"exp":  time.Now().Add(SessionTTL).Unix(),
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
