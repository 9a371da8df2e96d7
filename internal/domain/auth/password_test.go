package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secret1")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "Secret1"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestPasswordIssues(t *testing.T) {
	tests := []struct {
		name     string
		password string
		issues   int
	}{
		{name: "valid password", password: "Abc123"},
		{name: "symbols allowed", password: "Abc12!"},
		{name: "too short", password: "Ab1", issues: 1},
		{name: "missing uppercase", password: "abcdef1", issues: 1},
		{name: "missing lowercase", password: "ABCDEF1", issues: 1},
		{name: "missing digit", password: "Abcdefg", issues: 1},
		{name: "empty", password: "", issues: 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := PasswordIssues(tc.password)
			if len(got) != tc.issues {
				t.Fatalf("PasswordIssues(%q) = %v, want %d issues", tc.password, got, tc.issues)
			}
		})
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: "u1", RoleName: RoleHR, EmployeeID: "e1", SessionID: "s1"}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.UserID != "u1" || parsed.RoleName != RoleHR || parsed.EmployeeID != "e1" || parsed.SessionID != "s1" {
		t.Fatalf("claims mismatch: %+v", parsed)
	}

	if _, err := ParseToken("other-secret", token); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestParseTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	secret := "test-secret"
	expired, err := GenerateToken(secret, Claims{UserID: "u1", SessionID: "s1"}, -time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken(secret, expired); !errors.Is(err, ErrInvalidSessionToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    "u1",
		SessionID: "s1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := ParseToken(secret, foreign); err == nil {
		t.Fatal("expected foreign issuer to be rejected")
	}

	if _, err := GenerateToken("", Claims{UserID: "u1", SessionID: "s1"}, time.Hour); err == nil {
		t.Fatal("expected empty secret to be refused")
	}
}

func TestHashTokenIsStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Fatal("hash not deterministic")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatal("hash collision")
	}
}
