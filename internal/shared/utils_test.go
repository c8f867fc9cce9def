package shared

import (
	"regexp"
	"testing"
)

func TestMakeRandHexString(t *testing.T) {
	s, err := MakeRandHexString(16)
	if err != nil {
		t.Fatalf("MakeRandHexString error: %v", err)
	}
	if len(s) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(s))
	}
	if !regexp.MustCompile(`^[0-9a-f]+$`).MatchString(s) {
		t.Fatalf("not a hex string: %q", s)
	}
}

func TestMakeRandURLToken(t *testing.T) {
	s, err := MakeRandURLToken(16)
	if err != nil {
		t.Fatalf("MakeRandURLToken error: %v", err)
	}
	if len(s) != 22 {
		t.Fatalf("expected 22 chars, got %d", len(s))
	}
	if !regexp.MustCompile(`^[A-Za-z0-9_-]+$`).MatchString(s) {
		t.Fatalf("token not URL-safe: %q", s)
	}
	s2, _ := MakeRandURLToken(16)
	if s == s2 {
		t.Fatalf("two tokens should not collide")
	}
}
