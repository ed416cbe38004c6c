// ABOUTME: Unit tests for broker-side token issue and verification.
// ABOUTME: Tests valid, tampered, and expired tokens.

package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("broker-secret"))

	token, err := issuer.Issue("E100", []string{"ROLE_USER"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "E100" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "E100")
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "ROLE_USER" {
		t.Errorf("Roles = %v, want [ROLE_USER]", claims.Roles)
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	token, err := NewTokenIssuer([]byte("secret-a")).Issue("E100", nil, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = NewTokenIssuer([]byte("secret-b")).Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer([]byte("broker-secret"))

	token, err := issuer.Issue("E100", nil, -time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = issuer.Verify(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func TestTokenIssuer_Garbage(t *testing.T) {
	_, err := NewTokenIssuer([]byte("broker-secret")).Verify("nope")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
	}
}
