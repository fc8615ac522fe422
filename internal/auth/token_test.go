package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/learnhub/learnhub/internal/auth"
	_ "github.com/learnhub/learnhub/testing"
)

func newTestCodec() *auth.Codec {
	return auth.NewCodec("access-secret", "refresh-secret", 7*24*time.Hour, 30*24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := newTestCodec()
	claims := auth.NewClaims("acc-1", auth.KindStudent, auth.RoleStudent, "jane@test.local", "manual")

	token, err := codec.IssueAccessToken(claims)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	decoded, err := codec.DecodeAccess(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Subject != "acc-1" {
		t.Fatalf("subject = %q, want acc-1", decoded.Subject)
	}
	if decoded.Kind != auth.KindStudent {
		t.Fatalf("kind = %q, want student", decoded.Kind)
	}
	if decoded.Role != string(auth.RoleStudent) {
		t.Fatalf("role = %q, want student", decoded.Role)
	}
	if decoded.Email != "jane@test.local" || decoded.RegistrationType != "manual" {
		t.Fatalf("claims not preserved: %+v", decoded)
	}
}

func TestAccessTokenRejectedByRefreshSecret(t *testing.T) {
	codec := newTestCodec()
	token, err := codec.IssueAccessToken(auth.NewClaims("acc-1", auth.KindStudent, auth.RoleStudent, "", "manual"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := codec.DecodeRefresh(token); !errors.Is(err, auth.ErrTokenInvalid) {
		t.Fatalf("decode with refresh secret = %v, want ErrTokenInvalid", err)
	}
}

func TestExpiredTokenDistinguishedFromInvalid(t *testing.T) {
	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := issuedAt
	codec := auth.NewCodec("access-secret", "refresh-secret", time.Second, time.Minute).
		WithClock(func() time.Time { return clock })

	token, err := codec.IssueAccessToken(auth.NewClaims("acc-1", auth.KindStudent, auth.RoleStudent, "", "manual"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Accepted immediately after issuance.
	if _, err := codec.DecodeAccess(token); err != nil {
		t.Fatalf("decode fresh token: %v", err)
	}

	clock = issuedAt.Add(2 * time.Second)
	if _, err := codec.DecodeAccess(token); !errors.Is(err, auth.ErrTokenExpired) {
		t.Fatalf("decode stale token = %v, want ErrTokenExpired", err)
	}

	if _, err := codec.DecodeAccess("not-a-token"); !errors.Is(err, auth.ErrTokenInvalid) {
		t.Fatalf("decode garbage = %v, want ErrTokenInvalid", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	codec := newTestCodec()
	token, err := codec.IssueAccessToken(auth.NewClaims("acc-1", auth.KindStudent, auth.RoleStudent, "", "manual"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"
	if _, err := codec.DecodeAccess(tampered); !errors.Is(err, auth.ErrTokenInvalid) {
		t.Fatalf("decode tampered = %v, want ErrTokenInvalid", err)
	}
}
