package auth

import (
	"strings"
	"testing"
	"time"
)

func TestCodecSignVerifyRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret", 0)
	token, err := codec.Sign("team-a", "alice")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	if strings.ContainsAny(token, "+/= ;,") {
		t.Fatalf("token not cookie-safe: %q", token)
	}
	ws := codec.Verify(token)
	if ws == nil {
		t.Fatalf("expected context from valid token")
	}
	if ws.TeamID != "team-a" || ws.MemberName != "alice" {
		t.Fatalf("round trip mismatch: %+v", ws)
	}
}

func TestCodecVerifyExpiredToken(t *testing.T) {
	codec := NewCodec("test-secret", 30*24*time.Hour)
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	codec.now = func() time.Time { return issued }
	token, err := codec.Sign("team-a", "alice")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	codec.now = func() time.Time { return issued.Add(29 * 24 * time.Hour) }
	if codec.Verify(token) == nil {
		t.Fatalf("token should still verify inside the window")
	}

	codec.now = func() time.Time { return issued.Add(31 * 24 * time.Hour) }
	if ws := codec.Verify(token); ws != nil {
		t.Fatalf("expected nil after expiry, got %+v", ws)
	}
}

func TestCodecVerifyTamperedSignature(t *testing.T) {
	codec := NewCodec("test-secret", 0)
	token, err := codec.Sign("team-a", "alice")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	body, sig, ok := strings.Cut(token, ".")
	if !ok {
		t.Fatalf("unexpected token shape: %q", token)
	}
	flipped := byte('A')
	if sig[0] == 'A' {
		flipped = 'B'
	}
	tampered := body + "." + string(flipped) + sig[1:]
	if ws := codec.Verify(tampered); ws != nil {
		t.Fatalf("expected nil for tampered token, got %+v", ws)
	}
}

func TestCodecVerifyMalformedTokens(t *testing.T) {
	codec := NewCodec("test-secret", 0)
	for _, token := range []string{"", "no-dot", ".", "a.", ".b", "!!!.###", "ab.cd"} {
		if ws := codec.Verify(token); ws != nil {
			t.Fatalf("expected nil for %q, got %+v", token, ws)
		}
	}
}

func TestCodecVerifyWrongSecret(t *testing.T) {
	token, err := NewCodec("secret-one", 0).Sign("team-a", "alice")
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	if ws := NewCodec("secret-two", 0).Verify(token); ws != nil {
		t.Fatalf("expected nil across secrets, got %+v", ws)
	}
}
