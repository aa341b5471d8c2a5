package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testIssuer = "https://login.w3.example.com/oidc/endpoint/default"

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

// rsaTestKey returns a process-wide RSA key; generating one per test is slow.
func rsaTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

// jwksServer serves the public halves of keys and counts fetches.
type jwksServer struct {
	*httptest.Server
	mu    sync.Mutex
	keys  map[string]*rsa.PublicKey
	hits  atomic.Int32
	fail  atomic.Bool
	delay atomic.Int64
}

func newJWKSServer(t *testing.T, keys map[string]*rsa.PublicKey) *jwksServer {
	t.Helper()
	js := &jwksServer{keys: keys}
	js.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		js.hits.Add(1)
		if d := time.Duration(js.delay.Load()); d > 0 {
			time.Sleep(d)
		}
		if js.fail.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		js.mu.Lock()
		defer js.mu.Unlock()
		var doc struct {
			Keys []map[string]string `json:"keys"`
		}
		for kid, pub := range js.keys {
			doc.Keys = append(doc.Keys, map[string]string{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(js.Close)
	return js
}

func (js *jwksServer) setKey(kid string, pub *rsa.PublicKey) {
	js.mu.Lock()
	js.keys[kid] = pub
	js.mu.Unlock()
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func validClaims(uid string) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   testIssuer,
		"uid":   uid,
		"name":  "Alice Example",
		"email": "alice@ibm.com",
		"aud":   "some-other-client",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
}
