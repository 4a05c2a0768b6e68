package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenCodec_IssueAndParse(t *testing.T) {
	codec := NewTokenCodec([]byte(strings.Repeat("x", 32)))
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tok, err := codec.Issue("sess-1", "user-1", "alice", "user", now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := codec.Parse(tok, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.SessionID() != "sess-1" || claims.UserID != "user-1" || claims.Username != "alice" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenCodec_RejectsExpiredAndTampered(t *testing.T) {
	codec := NewTokenCodec([]byte(strings.Repeat("x", 32)))
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tok, err := codec.Issue("sess-1", "user-1", "alice", "user", now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := codec.Parse(tok, now.Add(2*time.Hour)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
	if _, err := codec.Parse(tok+"x", now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected tampered token to fail, got %v", err)
	}

	other := NewTokenCodec([]byte(strings.Repeat("y", 32)))
	if _, err := other.Parse(tok, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected token signed with another key to fail, got %v", err)
	}
}

func TestTokenCodec_RejectsNoneAlgorithm(t *testing.T) {
	codec := NewTokenCodec([]byte(strings.Repeat("x", 32)))
	now := time.Now()

	claims := Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "sess-1",
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := codec.Parse(unsigned, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg=none to be rejected, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		want   string
		ok     bool
	}{
		"valid":       {"Bearer abc", "abc", true},
		"lower":       {"bearer abc", "abc", true},
		"missing":     {"", "", false},
		"basic":       {"Basic abc", "", false},
		"no token":    {"Bearer ", "", false},
		"bare token":  {"abc", "", false},
		"extra space": {"Bearer   abc  ", "abc", true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := BearerToken(tc.header)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("BearerToken(%q) = %q, %v", tc.header, got, ok)
			}
		})
	}
}
