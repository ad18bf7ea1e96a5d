package auth

import (
	"errors"
	"testing"
)

func TestIssueAndParse_Success(t *testing.T) {
	t.Parallel()

	j := &JWTer{Secret: []byte("super-secret"), Issuer: "task-manager"}

	tok, err := j.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if tok == "" {
		t.Fatalf("Issue returned empty token")
	}

	uid, err := j.Parse(tok)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if uid != "user-123" {
		t.Fatalf("uid mismatch: got %q want %q", uid, "user-123")
	}
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	j1 := &JWTer{Secret: []byte("right-secret"), Issuer: "task-manager"}
	j2 := &JWTer{Secret: []byte("wrong-secret"), Issuer: "task-manager"}

	tok, err := j1.Issue("u1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := j2.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestParse_WrongIssuer(t *testing.T) {
	t.Parallel()

	j1 := &JWTer{Secret: []byte("k"), Issuer: "someone-else"}
	j2 := &JWTer{Secret: []byte("k"), Issuer: "task-manager"}

	tok, err := j1.Issue("u1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := j2.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	j := &JWTer{Secret: []byte("k"), Issuer: "task-manager"}
	for _, in := range []string{"", "not.a.jwt", "aaaa"} {
		if _, err := j.Parse(in); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Parse(%q): expected ErrInvalidToken, got %v", in, err)
		}
	}
}
