package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken lo devuelven los verifiers cuando el token no es aceptable
// (firma, expiración, issuer, azp...). Otros errores son fallas de infraestructura.
var ErrInvalidToken = errors.New("invalid session token")

// AuthVerifier verifica un token y devuelve claims o error.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
