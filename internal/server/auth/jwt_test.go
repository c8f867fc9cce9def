package auth

import (
	"testing"
	"time"
)

func TestGenerateAndParseLinkToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateLinkToken("123456", secret, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	code, err := GetCodeFromLinkToken(token, secret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "123456" {
		t.Errorf("got code %q, want %q", code, "123456")
	}
}

func TestGetCodeFromLinkToken_WrongSecret(t *testing.T) {
	token, err := GenerateLinkToken("123456", []byte("secret-a"), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := GetCodeFromLinkToken(token, []byte("secret-b")); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestGetCodeFromLinkToken_Expired(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateLinkToken("123456", secret, -time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := GetCodeFromLinkToken(token, secret); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestGetCodeFromLinkToken_Garbage(t *testing.T) {
	if _, err := GetCodeFromLinkToken("not-a-token", []byte("x")); err == nil {
		t.Fatal("expected error")
	}
}
