package token

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"warden/internal/domain"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func testNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestSigner(t *testing.T, now func() time.Time) *Signer[domain.GrantID] {
	t.Helper()
	if now == nil {
		now = testNow
	}
	signer, err := NewSigner[domain.GrantID](testKey, GrantIDConverter{}, Config{Now: now})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return signer
}

func testRequest() domain.ActivationRequest[domain.GrantID] {
	start := testNow()
	return domain.ActivationRequest[domain.GrantID]{
		ID:             domain.ActivationID{Kind: domain.ApprovalPeer, ID: "9b2e8f3a-1111-2222-3333-444455556666"},
		RequestingUser: domain.User("bob@example.com"),
		Reviewers:      domain.NewPrincipalSet(domain.User("carol@example.com"), domain.User("erin@example.com")),
		Privilege:      domain.RoleBindingID("projects/proj-1", "roles/editor"),
		Justification:  "case-123",
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
	}
}

func TestSigner_RoundTrip(t *testing.T) {
	signer := newTestSigner(t, nil)
	request := testRequest()

	token, err := signer.Sign(context.Background(), request)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !token.ExpiryTime.Equal(request.EndTime) {
		t.Fatalf("token expiry %s, want request end %s", token.ExpiryTime, request.EndTime)
	}

	verified, err := signer.Verify(context.Background(), token.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.Equal(request) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", verified, request)
	}
}

func TestSigner_TamperRejection(t *testing.T) {
	signer := newTestSigner(t, nil)
	token, err := signer.Sign(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	raw := []byte(token.Token)
	for i := 0; i < len(raw); i += 7 {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[i] ^= 0x01
		if string(tampered) == token.Token {
			continue
		}
		if _, err := signer.Verify(context.Background(), string(tampered)); !errors.Is(err, domain.ErrAccessDenied) {
			t.Fatalf("byte %d: expected access denied for tampered token, got %v", i, err)
		}
	}
}

func TestSigner_WrongKeyRejection(t *testing.T) {
	signer := newTestSigner(t, nil)
	token, err := signer.Sign(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other, err := NewSigner[domain.GrantID]([]byte("ffffffffffffffffffffffffffffffff"), GrantIDConverter{}, Config{Now: testNow})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if _, err := other.Verify(context.Background(), token.Token); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected access denied for wrong signer, got %v", err)
	}
}

func TestSigner_ExpiredToken(t *testing.T) {
	signer := newTestSigner(t, nil)
	token, err := signer.Sign(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	late := newTestSigner(t, func() time.Time { return testNow().Add(2 * time.Hour) })
	if _, err := late.Verify(context.Background(), token.Token); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected access denied for expired token, got %v", err)
	}
}

func TestSigner_MaxValidityCapsExpiry(t *testing.T) {
	signer, err := NewSigner[domain.GrantID](testKey, GrantIDConverter{}, Config{Now: testNow, MaxValidity: 10 * time.Minute})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	token, err := signer.Sign(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	want := testNow().Add(10 * time.Minute)
	if !token.ExpiryTime.Equal(want) {
		t.Fatalf("token expiry %s, want capped %s", token.ExpiryTime, want)
	}
}

func TestSigner_RejectsShortKey(t *testing.T) {
	if _, err := NewSigner[domain.GrantID]([]byte("short"), GrantIDConverter{}, Config{}); err == nil {
		t.Fatalf("expected error for short signing key")
	}
}

func TestObfuscate_RoundTrip(t *testing.T) {
	signer := newTestSigner(t, nil)
	token, err := signer.Sign(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	display := Obfuscate(token.Token)
	if strings.Contains(display, ".") {
		t.Fatalf("obfuscated token must not contain separators: %q", display)
	}
	if !strings.HasPrefix(display, "wtk-") {
		t.Fatalf("obfuscated token missing prefix: %q", display)
	}
	if Deobfuscate(display) != token.Token {
		t.Fatalf("deobfuscate must invert obfuscate")
	}

	// The transform is display-only: the deobfuscated token still verifies.
	if _, err := signer.Verify(context.Background(), Deobfuscate(display)); err != nil {
		t.Fatalf("verify deobfuscated token: %v", err)
	}
}
