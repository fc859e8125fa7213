package clerk

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mamacare-api/internal/ports/auth"
)

var (
	ErrTokenEmpty        = errors.New("token is empty")
	ErrNoKeySource       = errors.New("clerk verifier: neither PEM key nor JWKS configured")
	ErrUnauthorizedParty = errors.New("token azp is not an authorized party")
	ErrMissingSubject    = errors.New("token missing sub")
)

// VerifierConfig controla la verificación de los session tokens de Clerk.
type VerifierConfig struct {
	// PublicKeyPEM: llave pública (Dashboard → API Keys → JWT public key).
	// Si viene, se verifica sin red; si no, se usa el JWKS.
	PublicKeyPEM string

	Issuer            string
	AuthorizedParties []string
	ClockSkew         time.Duration
}

// sessionClaims son los claims que emite Clerk en el session token.
type sessionClaims struct {
	SessionID       string `json:"sid"`
	AuthorizedParty string `json:"azp"`
	OrgID           string `json:"org_id"`
	jwt.RegisteredClaims
}

// Verifier implementa auth.AuthVerifier para session tokens (RS256) de Clerk.
type Verifier struct {
	static  *rsa.PublicKey
	jwks    *Client
	issuer  string
	parties map[string]struct{}
	leeway  time.Duration
	now     func() time.Time
}

func NewVerifier(cfg VerifierConfig, jwks *Client) (*Verifier, error) {
	v := &Verifier{
		jwks:    jwks,
		issuer:  strings.TrimSpace(cfg.Issuer),
		parties: map[string]struct{}{},
		leeway:  cfg.ClockSkew,
		now:     time.Now,
	}

	if pem := strings.TrimSpace(cfg.PublicKeyPEM); pem != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("clerk verifier: parse public key: %w", err)
		}
		v.static = key
	}
	if v.static == nil && !jwks.IsConfigured() {
		return nil, ErrNoKeySource
	}

	for _, p := range cfg.AuthorizedParties {
		if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
			v.parties[p] = struct{}{}
		}
	}
	return v, nil
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, ErrTokenEmpty)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var sc sessionClaims
	if _, err := jwt.ParseWithClaims(token, &sc, v.keyFunc(ctx), opts...); err != nil {
		// JWKS caído no es culpa del token; el caller decide cómo loguearlo.
		if errors.Is(err, ErrJWKSUnavailable) {
			return auth.Claims{}, fmt.Errorf("clerk verify: %w", err)
		}
		return auth.Claims{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}

	if len(v.parties) > 0 && sc.AuthorizedParty != "" {
		if _, ok := v.parties[strings.TrimRight(sc.AuthorizedParty, "/")]; !ok {
			return auth.Claims{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, ErrUnauthorizedParty)
		}
	}

	sub := strings.TrimSpace(sc.Subject)
	if sub == "" {
		return auth.Claims{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, ErrMissingSubject)
	}

	return auth.Claims{
		UserID:    sub,
		SessionID: sc.SessionID,
		OrgID:     sc.OrgID,
	}, nil
}

func (v *Verifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if v.static != nil {
			return v.static, nil
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header missing kid")
		}
		return v.jwks.Key(ctx, kid)
	}
}
