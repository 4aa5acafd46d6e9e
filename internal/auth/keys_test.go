package auth

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestGenerateAPIKey(t *testing.T) {
	id, raw, hash, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(id) != 12 {
		t.Fatalf("id length = %d, want 12", len(id))
	}
	if !strings.HasPrefix(raw, "wx_"+id+"_") {
		t.Fatalf("raw key %q does not embed id %q", raw, id)
	}

	_, secret, ok := ParseAPIKey(raw)
	if !ok {
		t.Fatalf("generated key does not parse: %q", raw)
	}
	if len(secret) != 32 {
		t.Fatalf("secret length = %d, want 32", len(secret))
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
		t.Fatalf("hash does not verify secret: %v", err)
	}
	if strings.Contains(string(hash), secret) {
		t.Fatal("hash must not contain the raw secret")
	}
}

func TestGenerateAPIKeyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		id, _, _, err := GenerateAPIKey()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestParseAPIKey(t *testing.T) {
	cases := []struct {
		raw    string
		id     string
		secret string
		ok     bool
	}{
		{"wx_abc123def456_s3cr3ts3cr3ts3cr3ts3cr3ts3cr3t12", "abc123def456", "s3cr3ts3cr3ts3cr3ts3cr3ts3cr3t12", true},
		{"sc_abc_def", "", "", false},
		{"wx_onlyid", "", "", false},
		{"wx__", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		id, secret, ok := ParseAPIKey(tc.raw)
		if ok != tc.ok || id != tc.id || secret != tc.secret {
			t.Fatalf("ParseAPIKey(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.raw, id, secret, ok, tc.id, tc.secret, tc.ok)
		}
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	if GetPrincipal(ctx) != nil {
		t.Fatal("empty context must yield nil principal")
	}

	p := &Principal{KeyID: "abc", Owner: "ops"}
	ctx = WithPrincipal(ctx, p)
	if got := GetPrincipal(ctx); got != p {
		t.Fatalf("GetPrincipal = %+v, want %+v", got, p)
	}
}
