package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestIssueThenParseHS256(t *testing.T) {
	m, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("secret-secret-secret-secret"), Issuer: "reuse"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok, err := m.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.Subject)
	}
	if IsExpired(tok) {
		t.Fatal("freshly issued token must not be expired")
	}

	decoded, err := DecodePayload(tok)
	if err != nil {
		t.Fatalf("decode issued token: %v", err)
	}
	if decoded.ExpiresAt == nil || !decoded.ExpiresAt.Time.Equal(claims.ExpiresAt.Time) {
		t.Fatal("unverified decode must agree with verified parse on exp")
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Parse(tok); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseIssuerAndLeeway(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "reuse",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	sign := func(c Claims) string {
		s, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, c).SignedString(priv)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	wrongIssuer := sign(Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "other",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})
	if _, err := m.Parse(wrongIssuer); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	withinLeeway := sign(Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "reuse",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-15 * time.Second)),
	}})
	if _, err := m.Parse(withinLeeway); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := sign(Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "reuse",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
	}})
	if _, err := m.Parse(expired); err == nil {
		t.Fatal("expected expired token to fail")
	}

	noExp := sign(Claims{RegisteredClaims: gjwt.RegisteredClaims{Issuer: "reuse"}})
	if _, err := m.Parse(noExp); err == nil {
		t.Fatal("expected token without exp to fail verification")
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{TTL: 0, SigningMethod: MethodHS256, PrivateKey: []byte("k")},
		{TTL: time.Minute, SigningMethod: MethodHS256},
		{TTL: time.Minute, SigningMethod: MethodEd25519},
		{TTL: time.Minute, SigningMethod: "rs256", PrivateKey: []byte("k")},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}
