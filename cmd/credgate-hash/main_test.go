package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/MrEthical07/goCred/password"
)

func TestRunHashesAndVerifies(t *testing.T) {
	const plain = "Str0ng!Pass"

	for _, algo := range []string{"bcrypt", "argon2id"} {
		hash, err := run(options{algo: algo, cost: 4}, plain, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("%s: hash: %v", algo, err)
		}

		out, err := run(options{verify: hash}, plain, &bytes.Buffer{})
		if err != nil || out != "match" {
			t.Fatalf("%s: verify: %q %v", algo, out, err)
		}
		if _, err := run(options{verify: hash}, "Wr0ng!Pass", &bytes.Buffer{}); err == nil {
			t.Fatalf("%s: expected mismatch", algo)
		}
	}
}

func TestRunEnforcesPolicy(t *testing.T) {
	var warn bytes.Buffer
	_, err := run(options{algo: "bcrypt", cost: 4}, "short", &warn)
	if !errors.Is(err, password.ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if !strings.Contains(warn.String(), "at least 8 characters") {
		t.Fatalf("expected length warning, got %q", warn.String())
	}

	if _, err := run(options{algo: "bcrypt", cost: 4, skipPolicy: true}, "short", &warn); err != nil {
		t.Fatalf("skip-policy: %v", err)
	}
}

func TestReadPassword(t *testing.T) {
	got, err := readPassword(strings.NewReader("secret\r\nignored\n"))
	if err != nil || got != "secret" {
		t.Fatalf("got %q %v", got, err)
	}
	if _, err := readPassword(strings.NewReader("")); !errors.Is(err, password.ErrPasswordEmpty) {
		t.Fatalf("expected ErrPasswordEmpty, got %v", err)
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	if _, err := run(options{algo: "md5"}, "Str0ng!Pass", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error")
	}
}
