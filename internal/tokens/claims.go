package tokens

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

type AccessClaims struct {
	jwt.RegisteredClaims
}

// RefreshClaims carries the session id in the registered ID (jti)
// field; the jti survives rotation, the signed string does not. The
// nonce keeps two mints within the same second from colliding, since
// IssuedAt and ExpiresAt only carry second precision.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

func parse(tokenStr string, secret []byte, claims jwt.Claims) error {
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !tkn.Valid {
		return ErrTokenInvalid
	}
	return nil
}
