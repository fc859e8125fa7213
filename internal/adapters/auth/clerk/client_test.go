package clerk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Key_CancelledCallerDoesNotAbortSharedFetch(t *testing.T) {
	k := genKey(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		_ = json.NewEncoder(w).Encode(jwks{Keys: []jwk{{
			Kid: "ins_1",
			Kty: "RSA",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(k.PublicKey.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.PublicKey.E)).Bytes()),
		}}})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{JWKSURL: srv.URL, Timeout: 5 * time.Second}, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Key(ctxA, "ins_1")
		errA <- err
	}()
	<-started

	errB := make(chan error, 1)
	go func() {
		_, err := c.Key(context.Background(), "ins_1")
		errB <- err
	}()

	// A se va; el fetch sigue para B.
	cancelA()
	err := <-errA
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJWKSUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.NoError(t, <-errB)

	key, err := c.Key(context.Background(), "ins_1")
	require.NoError(t, err)
	assert.Equal(t, 0, key.N.Cmp(k.PublicKey.N))
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_Key_NotConfigured(t *testing.T) {
	var c *Client
	_, err := c.Key(context.Background(), "ins_1")
	assert.ErrorIs(t, err, ErrJWKSNotConfigured)
}
