package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/chapterhub/internal/common"
)

// Claims is the JWT payload of a session cookie. The token only points at
// a server-side session row; revocation deletes the row.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

func GenerateToken(sessionID, userID string, secretKey []byte, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	})
	return token.SignedString(secretKey)
}

// ParseToken checks the signature and expiry against now. An expired but
// otherwise valid token returns its claims together with
// common.ErrTokenExpired so the caller can still close the session.
func ParseToken(tokenString string, secretKey []byte, now func() time.Time) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(now))

	switch {
	case errors.Is(err, jwt.ErrTokenExpired) && claims.SessionID != "":
		return claims, common.ErrTokenExpired
	case err != nil:
		return nil, common.ErrInvalidToken
	case !token.Valid || claims.SessionID == "":
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
