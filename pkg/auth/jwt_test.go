package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	sub := "a3f45b67-8c3d-4f8b-9e1f-2b7a3e1c7e2b"

	token, err := codec.Issue(sub, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := codec.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Sub != sub {
		t.Errorf("got sub %q, want %q", claims.Sub, sub)
	}
	if !claims.IssuedAt.Before(claims.ExpiresAt.Time) {
		t.Errorf("issued at %v not before expiry %v", claims.IssuedAt, claims.ExpiresAt)
	}
}

func TestIssueEmptySubject(t *testing.T) {
	codec := newTestCodec(t)

	if _, err := codec.Issue("", time.Hour); !errors.Is(err, ErrInvalidSubject) {
		t.Errorf("got %v, want ErrInvalidSubject", err)
	}
}

func TestParseEmptyToken(t *testing.T) {
	codec := newTestCodec(t)

	if _, err := codec.Parse(""); !errors.Is(err, ErrInvalidSubject) {
		t.Errorf("got %v, want ErrInvalidSubject", err)
	}
}

func TestParseGarbageToken(t *testing.T) {
	codec := newTestCodec(t)

	if _, err := codec.Parse("invalid-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}

func TestParseExpiredToken(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Issue("user-1", -time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := codec.Parse(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("got %v, want ErrExpiredToken", err)
	}
}

func TestParseWrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec("another-secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	token, err := codec.Issue("user-1", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("got %v, want ErrInvalidToken", err)
	}
}

func TestNewCodecEmptySecret(t *testing.T) {
	if _, err := NewCodec(""); err == nil {
		t.Error("expected error for empty secret")
	}
}
