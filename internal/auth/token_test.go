package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerifyToken(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, "user-1", "avery@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	claims, err := NewVerifier(secret).Verify(issued)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "avery@example.com" || claims.Role != "authenticated" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, "user-1", "", -time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	_, err = NewVerifier(secret).Verify(issued)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issued, err := IssueToken([]byte("secret"), "user-1", "", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := NewVerifier([]byte("other")).Verify(issued); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsMissingSubjectAndExpiry(t *testing.T) {
	secret := []byte("secret")
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
	}).SignedString(secret)

	v := NewVerifier(secret)
	for name, token := range map[string]string{"no subject": noSubject, "no expiry": noExpiry, "garbage": "a.b.c"} {
		if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: Verify() error = %v, want ErrInvalidToken", name, err)
		}
	}
}
