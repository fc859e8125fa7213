package clerk

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mamacare-api/internal/platform/httpclient"
)

var (
	ErrJWKSNotConfigured = errors.New("clerk jwks url not configured")
	ErrJWKSUnavailable   = errors.New("clerk jwks unavailable")
	ErrUnknownKey        = errors.New("clerk jwks: unknown key id")
)

// Config del cliente JWKS.
// JWKSURL puede ser el endpoint del Backend API (https://api.clerk.com/v1/jwks, requiere SecretKey)
// o el público del Frontend API (https://<app>.clerk.accounts.dev/.well-known/jwks.json).
type Config struct {
	JWKSURL   string
	SecretKey string

	Timeout time.Duration

	// MinRefreshInterval evita martillar el endpoint cuando llegan kids desconocidos.
	MinRefreshInterval time.Duration
}

// Client mantiene en memoria las llaves públicas de Clerk indexadas por kid.
type Client struct {
	jwksURL    string
	secretKey  string
	http       *httpclient.Client
	timeout    time.Duration
	minRefresh time.Duration
	now        func() time.Time

	group singleflight.Group

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastFetched time.Time
}

func NewClient(cfg Config, hc *httpclient.Client) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if hc == nil {
		hc = httpclient.New(timeout)
	}
	minRefresh := cfg.MinRefreshInterval
	if minRefresh <= 0 {
		minRefresh = 30 * time.Second
	}

	return &Client{
		jwksURL:    strings.TrimSpace(cfg.JWKSURL),
		secretKey:  strings.TrimSpace(cfg.SecretKey),
		http:       hc,
		timeout:    timeout,
		minRefresh: minRefresh,
		now:        time.Now,
		keys:       map[string]*rsa.PublicKey{},
	}
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.jwksURL != ""
}

// Key devuelve la llave para kid. Si no la conoce, refresca el JWKS
// (a lo sumo una vez por MinRefreshInterval).
func (c *Client) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if !c.IsConfigured() {
		return nil, ErrJWKSNotConfigured
	}

	if k, ok := c.cached(kid); ok {
		return k, nil
	}

	c.mu.RLock()
	stale := c.lastFetched.IsZero() || c.now().Sub(c.lastFetched) >= c.minRefresh
	c.mu.RUnlock()

	if stale {
		// El fetch compartido no depende del request que lo disparó.
		ch := c.group.DoChan("refresh", func() (any, error) {
			fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
			defer cancel()
			return nil, c.refresh(fetchCtx)
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrJWKSUnavailable, ctx.Err())
		}
	}

	if k, ok := c.cached(kid); ok {
		return k, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
}

func (c *Client) cached(kid string) (*rsa.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.keys[kid]
	return k, ok
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (c *Client) refresh(ctx context.Context) error {
	headers := map[string]string{}
	if c.secretKey != "" {
		headers["Authorization"] = "Bearer " + c.secretKey
	}

	var set jwks
	if err := c.http.GetJSON(ctx, c.jwksURL, headers, &set); err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSUnavailable, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || strings.TrimSpace(k.Kid) == "" {
			continue
		}
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := rsaKey(k.N, k.E)
		if err != nil {
			return fmt.Errorf("%w: kid %q: %v", ErrJWKSUnavailable, k.Kid, err)
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.lastFetched = c.now()
	c.mu.Unlock()
	return nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("decode n: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("decode e: %w", err)
	}
	exp := new(big.Int).SetBytes(eb)
	if !exp.IsInt64() || exp.Int64() <= 1 || exp.Int64() > 1<<31-1 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(exp.Int64())}, nil
}
