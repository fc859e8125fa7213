package clerk

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mamacare-api/internal/ports/auth"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func genKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return k
}

func publicPEM(t *testing.T, k *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func mint(t *testing.T, k *rsa.PrivateKey, kid string, claims sessionClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(k)
	require.NoError(t, err)
	return s
}

func validClaims(sub string) sessionClaims {
	return sessionClaims{
		SessionID:       "sess_1",
		AuthorizedParty: "http://localhost:3000",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "https://clerk.mamacare.dev",
			IssuedAt:  jwt.NewNumericDate(testNow.Add(-time.Minute)),
			NotBefore: jwt.NewNumericDate(testNow.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Minute)),
		},
	}
}

func newStaticVerifier(t *testing.T, k *rsa.PrivateKey, cfg VerifierConfig) *Verifier {
	t.Helper()
	cfg.PublicKeyPEM = publicPEM(t, k)
	v, err := NewVerifier(cfg, nil)
	require.NoError(t, err)
	v.now = func() time.Time { return testNow }
	return v
}

func TestVerifier_StaticKey_OK(t *testing.T) {
	k := genKey(t)
	v := newStaticVerifier(t, k, VerifierConfig{
		Issuer:            "https://clerk.mamacare.dev",
		AuthorizedParties: []string{"http://localhost:3000/"},
	})

	claims, err := v.Verify(context.Background(), mint(t, k, "", validClaims("user_1")))
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.UserID)
	assert.Equal(t, "sess_1", claims.SessionID)
}

func TestVerifier_RejectsBadTokens(t *testing.T) {
	k := genKey(t)
	other := genKey(t)
	v := newStaticVerifier(t, k, VerifierConfig{
		Issuer:            "https://clerk.mamacare.dev",
		AuthorizedParties: []string{"https://app.mamacare.dev"},
	})

	expired := validClaims("user_1")
	expired.ExpiresAt = jwt.NewNumericDate(testNow.Add(-time.Hour))

	wrongIss := validClaims("user_1")
	wrongIss.Issuer = "https://evil.example"

	noSub := validClaims("")
	noSub.AuthorizedParty = "https://app.mamacare.dev"

	noExp := validClaims("user_1")
	noExp.ExpiresAt = nil

	ok := validClaims("user_1")
	ok.AuthorizedParty = "https://app.mamacare.dev"

	cases := map[string]string{
		"empty":         "",
		"garbage":       "not-a-jwt",
		"wrong key":     mint(t, other, "", ok),
		"expired":       mint(t, k, "", expired),
		"wrong issuer":  mint(t, k, "", wrongIss),
		"azp not allow": mint(t, k, "", validClaims("user_1")),
		"missing sub":   mint(t, k, "", noSub),
		"missing exp":   mint(t, k, "", noExp),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tok)
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestVerifier_RejectsHS256(t *testing.T) {
	k := genKey(t)
	v := newStaticVerifier(t, k, VerifierConfig{})

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("user_1"))
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), s)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func jwksServer(t *testing.T, secret string, keys map[string]*rsa.PublicKey) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if secret != "" && r.Header.Get("Authorization") != "Bearer "+secret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		set := jwks{}
		for kid, k := range keys {
			set.Keys = append(set.Keys, jwk{
				Kid: kid,
				Kty: "RSA",
				Alg: "RS256",
				Use: "sig",
				N:   base64.RawURLEncoding.EncodeToString(k.N.Bytes()),
				E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.E)).Bytes()),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestVerifier_JWKS_FetchesAndCaches(t *testing.T) {
	k := genKey(t)
	srv, hits := jwksServer(t, "sk_test_1", map[string]*rsa.PublicKey{"ins_1": &k.PublicKey})

	client := NewClient(Config{JWKSURL: srv.URL, SecretKey: "sk_test_1", MinRefreshInterval: time.Hour}, nil)
	v, err := NewVerifier(VerifierConfig{}, client)
	require.NoError(t, err)
	v.now = func() time.Time { return testNow }

	for i := 0; i < 3; i++ {
		claims, err := v.Verify(context.Background(), mint(t, k, "ins_1", validClaims("user_9")))
		require.NoError(t, err)
		assert.Equal(t, "user_9", claims.UserID)
	}
	assert.Equal(t, int32(1), hits.Load())

	// kid desconocido dentro del intervalo mínimo: no vuelve a pedir el JWKS.
	_, err = v.Verify(context.Background(), mint(t, k, "ins_2", validClaims("user_9")))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	assert.Equal(t, int32(1), hits.Load())
}

func TestVerifier_JWKS_UpstreamFailureIsNotInvalidToken(t *testing.T) {
	k := genKey(t)
	srv, _ := jwksServer(t, "sk_right", map[string]*rsa.PublicKey{"ins_1": &k.PublicKey})

	client := NewClient(Config{JWKSURL: srv.URL, SecretKey: "sk_wrong"}, nil)
	v, err := NewVerifier(VerifierConfig{}, client)
	require.NoError(t, err)
	v.now = func() time.Time { return testNow }

	_, err = v.Verify(context.Background(), mint(t, k, "ins_1", validClaims("user_9")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJWKSUnavailable)
	assert.NotErrorIs(t, err, auth.ErrInvalidToken)
}

func TestNewVerifier_NeedsKeySource(t *testing.T) {
	_, err := NewVerifier(VerifierConfig{}, nil)
	assert.ErrorIs(t, err, ErrNoKeySource)

	_, err = NewVerifier(VerifierConfig{PublicKeyPEM: "not a pem"}, nil)
	assert.Error(t, err)
}
