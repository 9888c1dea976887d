package password

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// cheapArgon2 keeps tests fast while staying above the parameter floor.
func cheapArgon2(t *testing.T, mutate func(*Argon2Config)) *Argon2 {
	t.Helper()
	cfg := Argon2Config{
		Memory:      minMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func TestArgon2RoundTrip(t *testing.T) {
	h := cheapArgon2(t, nil)

	hash, err := h.Hash("Tr0ub4dor&3")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC header: %s", hash)
	}

	for _, tc := range []struct {
		input string
		want  bool
	}{
		{"Tr0ub4dor&3", true},
		{"tr0ub4dor&3", false},
		{"", false},
	} {
		got, err := h.Verify(tc.input, hash)
		if err != nil {
			t.Fatalf("Verify(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("Verify(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestArgon2HashesAreSalted(t *testing.T) {
	h := cheapArgon2(t, nil)
	a, _ := h.Hash("same-input")
	b, _ := h.Hash("same-input")
	if a == b {
		t.Fatal("two hashes of one password must differ")
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	weak := cheapArgon2(t, nil)
	hash, err := weak.Hash("upgrade-me")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if up, err := weak.NeedsUpgrade(hash); err != nil || up {
		t.Fatalf("same parameters: up=%v err=%v", up, err)
	}

	stronger := cheapArgon2(t, func(c *Argon2Config) { c.Time = 2 })
	if up, err := stronger.NeedsUpgrade(hash); err != nil || !up {
		t.Fatalf("stronger parameters: up=%v err=%v", up, err)
	}

	longerKey := cheapArgon2(t, func(c *Argon2Config) { c.KeyLength = 48 })
	if up, err := longerKey.NeedsUpgrade(hash); err != nil || !up {
		t.Fatalf("different key length: up=%v err=%v", up, err)
	}
}

func TestArgon2RejectsBadHashes(t *testing.T) {
	h := cheapArgon2(t, nil)
	good, err := h.Hash("reference")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	tests := []struct {
		name string
		hash string
		want error
	}{
		{"not phc", "not-a-phc-hash", ErrMalformedHash},
		{"argon2i", strings.Replace(good, "$argon2id$", "$argon2i$", 1), ErrUnsupportedHash},
		{"old version", strings.Replace(good, "$v=19$", "$v=16$", 1), ErrUnsupportedHash},
		{"memory below floor", strings.Replace(good, "m=8192", "m=1024", 1), ErrMalformedHash},
		{"unknown param", strings.Replace(good, "p=1", "x=1", 1), ErrMalformedHash},
		{"bad salt", strings.Replace(good, strings.Split(good, "$")[4], "!!", 1), ErrMalformedHash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.Verify("reference", tt.hash); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestArgon2PasswordLengthLimits(t *testing.T) {
	h := cheapArgon2(t, func(c *Argon2Config) { c.MaxPasswordBytes = 32 })

	if _, err := h.Hash(""); !errors.Is(err, ErrPasswordEmpty) {
		t.Fatalf("empty: expected ErrPasswordEmpty, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("x", 33)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("33 bytes: expected ErrPasswordTooLong, got %v", err)
	}

	exact := strings.Repeat("y", 32)
	hash, err := h.Hash(exact)
	if err != nil {
		t.Fatalf("32 bytes: %v", err)
	}
	if ok, err := h.Verify(exact, hash); err != nil || !ok {
		t.Fatalf("verify at limit: ok=%v err=%v", ok, err)
	}
	if _, err := h.Verify(exact+"z", hash); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("verify over limit: expected ErrPasswordTooLong, got %v", err)
	}

	defaults := cheapArgon2(t, nil)
	if _, err := defaults.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("default limit not applied: %v", err)
	}
}

func TestArgon2AcceptsPaddedBase64(t *testing.T) {
	h := cheapArgon2(t, nil)
	hash, err := h.Hash("padded")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	parts := strings.Split(hash, "$")
	for _, i := range []int{4, 5} {
		raw, _ := base64.RawStdEncoding.DecodeString(parts[i])
		parts[i] = base64.StdEncoding.EncodeToString(raw)
	}

	if ok, err := h.Verify("padded", strings.Join(parts, "$")); err != nil || !ok {
		t.Fatalf("padded encoding: ok=%v err=%v", ok, err)
	}
}

func TestNewArgon2Floors(t *testing.T) {
	for name, mutate := range map[string]func(*Argon2Config){
		"memory":      func(c *Argon2Config) { c.Memory = 1024 },
		"time":        func(c *Argon2Config) { c.Time = 0 },
		"parallelism": func(c *Argon2Config) { c.Parallelism = 0 },
		"salt":        func(c *Argon2Config) { c.SaltLength = 8 },
		"key":         func(c *Argon2Config) { c.KeyLength = 8 },
		"max bytes":   func(c *Argon2Config) { c.MaxPasswordBytes = -1 },
	} {
		cfg := DefaultArgon2Config()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Errorf("%s: expected rejection", name)
		}
	}
}
