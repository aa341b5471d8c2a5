package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// KeySet caches the provider's public signing keys.  Entries are trusted
// for ttl; a lookup for an unknown kid forces a refresh, but at most once
// per minRefresh so forged kids cannot be used to hammer the provider.
// Concurrent refreshes are coalesced into one HTTP request.
type KeySet struct {
	url        string
	client     *http.Client
	ttl        time.Duration
	minRefresh time.Duration
	now        func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeySet returns a KeySet that fetches url with client.
func NewKeySet(url string, client *http.Client, ttl, minRefresh time.Duration) *KeySet {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &KeySet{
		url:        url,
		client:     client,
		ttl:        ttl,
		minRefresh: minRefresh,
		now:        time.Now,
	}
}

// Key returns the RSA public key for kid.
func (ks *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	ks.mu.RLock()
	key, ok := ks.keys[kid]
	age := ks.now().Sub(ks.fetchedAt)
	fetched := !ks.fetchedAt.IsZero()
	ks.mu.RUnlock()

	if ok && age < ks.ttl {
		return key, nil
	}
	if !ok && fetched && age < ks.minRefresh {
		return nil, fmt.Errorf("%w: unknown key id %q", ErrUnauthenticated, kid)
	}

	if err := ks.refresh(ctx); err != nil {
		if ok {
			// keep serving a stale key while the provider is down
			log.Printf("[AUTH] action=jwks_refresh msg=serving stale key kid=%s err=%v", kid, err)
			return key, nil
		}
		return nil, err
	}

	ks.mu.RLock()
	key, ok = ks.keys[kid]
	ks.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown key id %q", ErrUnauthenticated, kid)
	}
	return key, nil
}

func (ks *KeySet) refresh(ctx context.Context) error {
	// The fetch is shared by every waiter, so it must not die with the
	// first caller's request; the client timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	_, err, _ := ks.group.Do("jwks", func() (interface{}, error) {
		keys, err := ks.fetch(shared)
		if err != nil {
			return nil, err
		}
		ks.mu.Lock()
		ks.keys = keys
		ks.fetchedAt = ks.now()
		ks.mu.Unlock()
		return nil, nil
	})
	return err
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (ks *KeySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ks.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := ks.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch jwks: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: jwks status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode jwks: %v", ErrServiceUnavailable, err)
	}
	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := rsaKey(k.N, k.E)
		if err != nil {
			log.Printf("[AUTH] action=jwks_parse msg=skipping key kid=%s err=%v", k.Kid, err)
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: jwks has no usable RSA keys", ErrServiceUnavailable)
	}
	return keys, nil
}

func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := decodeSegment(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := decodeSegment(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(eb)
	if !exp.IsInt64() || exp.Int64() < 3 || exp.Int64() > 1<<31-1 {
		return nil, errors.New("exponent out of range")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(exp.Int64())}, nil
}

func decodeSegment(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
