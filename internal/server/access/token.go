package access

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the user name. The random ID makes every issued token
// distinct; there is no expiry, a token lives until the next login replaces
// it in the session store.
type Claims struct {
	jwt.RegisteredClaims
	UserName string `json:"usr"`
}

// now is a seam for tests.
var now = time.Now

// GenerateToken signs a fresh HS256 token for userName.
func GenerateToken(userName string, secretKey []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Subject:  userName,
			IssuedAt: jwt.NewNumericDate(now()),
		},
		UserName: userName,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// UserNameFromToken verifies the signature and returns the user name.
// Any failure is reported as common.ErrUnauthenticated.
func UserNameFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrUnauthenticated, err)
	}

	if !token.Valid || claims.UserName == "" {
		return "", fmt.Errorf("%w: invalid token", common.ErrUnauthenticated)
	}

	return claims.UserName, nil
}
