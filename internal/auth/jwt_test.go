package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/craftlane/backend/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Email:    "pat@acme.test",
		Role:     models.RoleAdmin,
		Active:   true,
	}
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret", 24*time.Hour, 7*24*time.Hour)
	u := testUser()

	token, err := codec.SignAccess(u)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != u.ID || claims.TenantID != u.TenantID || claims.Email != u.Email || claims.Role != u.Role {
		t.Fatalf("claims = %+v, want payload of %+v", claims, u)
	}
	if claims.Kind != TokenKindAccess {
		t.Fatalf("kind = %s, want access", claims.Kind)
	}
}

func TestVerifyExpiryBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	codec := NewTokenCodec("test-secret", time.Hour, 7*24*time.Hour).WithClock(clock)

	token, err := codec.SignAccess(testUser())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	now = now.Add(time.Hour - time.Second)
	if _, err := codec.Verify(token); err != nil {
		t.Fatalf("token invalid strictly before TTL: %v", err)
	}

	now = now.Add(2 * time.Second)
	if _, err := codec.Verify(token); err == nil {
		t.Fatal("token still valid after TTL elapsed")
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour, 7*24*time.Hour)
	token, err := codec.SignAccess(testUser())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parts := strings.Split(token, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	if _, err := codec.Verify(strings.Join(parts, ".")); err == nil {
		t.Fatal("tampered token verified")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := NewTokenCodec("secret-a", time.Hour, time.Hour).SignAccess(testUser())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewTokenCodec("secret-b", time.Hour, time.Hour).Verify(token); err == nil {
		t.Fatal("token signed with another secret verified")
	}
}

func TestVerifyGarbage(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour, time.Hour)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := codec.Verify(tok); err == nil {
			t.Errorf("Verify(%q) succeeded, want error", tok)
		}
	}
}

func TestRefreshTokenInterchangeable(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour, 7*24*time.Hour)
	token, err := codec.SignRefresh(testUser())
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}
	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if claims.Kind != TokenKindRefresh {
		t.Fatalf("kind = %s, want refresh", claims.Kind)
	}
}
