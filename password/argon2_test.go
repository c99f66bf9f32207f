package password

import (
	"errors"
	"strings"
	"testing"
)

// cheap keeps the suite fast; production uses DefaultConfig.
func cheap(t *testing.T, maxBytes int) *Argon2 {
	t.Helper()
	h, err := NewArgon2(Config{Memory: minMemoryKB, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16, MaxPasswordBytes: maxBytes})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := cheap(t, 0)

	encoded, err := h.Hash("segunda-mano")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}

	if ok, err := h.Verify("segunda-mano", encoded); err != nil || !ok {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	if ok, err := h.Verify("segunda-mano!", encoded); err != nil || ok {
		t.Fatalf("expected mismatch, got %v %v", ok, err)
	}
}

func TestHashIsSalted(t *testing.T) {
	h := cheap(t, 0)
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatalf("expected distinct hashes for the same password")
	}
}

func TestVerifyUsesParametersFromHash(t *testing.T) {
	old := cheap(t, 0)
	encoded, err := old.Hash("listing-owner")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	current, err := NewArgon2(Config{Memory: 2 * minMemoryKB, Time: 2, Parallelism: 2, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	if ok, err := current.Verify("listing-owner", encoded); err != nil || !ok {
		t.Fatalf("expected hash from older config to verify, got %v %v", ok, err)
	}
}

func TestPasswordLengthBounds(t *testing.T) {
	h := cheap(t, 16)

	tests := []struct {
		name string
		pass string
		want error
	}{
		{name: "empty", pass: "", want: ErrPasswordTooShort},
		{name: "five bytes", pass: "abcde", want: ErrPasswordTooShort},
		{name: "six bytes", pass: "abcdef"},
		{name: "at max", pass: strings.Repeat("x", 16)},
		{name: "over max", pass: strings.Repeat("x", 17), want: ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Hash(tt.pass)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Hash(%d bytes) = %v, want %v", len(tt.pass), err, tt.want)
			}
		})
	}

	encoded, _ := h.Hash("abcdef")
	if _, err := h.Verify(strings.Repeat("x", 17), encoded); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected Verify to bound length, got %v", err)
	}
}

func TestZeroMaxUsesDefault(t *testing.T) {
	h := cheap(t, 0)
	if _, err := h.Hash(strings.Repeat("x", DefaultMaxPasswordBytes)); err != nil {
		t.Fatalf("expected default max to accept %d bytes: %v", DefaultMaxPasswordBytes, err)
	}
	if _, err := h.Hash(strings.Repeat("x", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h := cheap(t, 0)
	good, _ := h.Hash("valid-password")
	parts := strings.Split(good, "$")

	tests := map[string]string{
		"empty":          "",
		"bcrypt":         "$2a$10$abcdefghijklmnopqrstuu",
		"argon2i":        strings.Replace(good, "$argon2id$", "$argon2i$", 1),
		"old version":    strings.Replace(good, "$v=19$", "$v=16$", 1),
		"missing param":  "$argon2id$v=19$m=8192,t=1$" + parts[4] + "$" + parts[5],
		"extra param":    "$argon2id$v=19$m=8192,t=1,p=1,k=2$" + parts[4] + "$" + parts[5],
		"weak memory":    "$argon2id$v=19$m=64,t=1,p=1$" + parts[4] + "$" + parts[5],
		"short salt":     "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA==$" + parts[5],
		"bad key base64": "$argon2id$v=19$m=8192,t=1,p=1$" + parts[4] + "$!!!",
	}
	for name, encoded := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := h.Verify("valid-password", encoded); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("expected ErrMalformedHash, got %v", err)
			}
		})
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	base := Config{Memory: minMemoryKB, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}

	tests := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 1024 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
		"max":         func(c *Config) { c.MaxPasswordBytes = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			if _, err := NewArgon2(cfg); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := NewArgon2(DefaultConfig()); err != nil {
		t.Fatalf("DefaultConfig rejected: %v", err)
	}
}
