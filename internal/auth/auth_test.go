package auth

import (
	"testing"
	"time"
)

func TestService_GenerateToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	token, err := svc.GenerateToken("operator")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Error("expected non-empty token")
	}
}

func TestService_ValidateToken_Valid(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	token, _ := svc.GenerateToken("operator")
	claims, err := svc.ValidateToken(token)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Username != "operator" {
		t.Errorf("expected username operator, got %s", claims.Username)
	}
}

func TestService_ValidateToken_Invalid(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	_, err := svc.ValidateToken("invalid-token")

	if err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestService_ValidateToken_WrongSecret(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	other := NewService("other-secret", time.Hour)

	token, _ := other.GenerateToken("operator")
	_, err := svc.ValidateToken(token)

	if err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestService_ValidateToken_Expired(t *testing.T) {
	svc := NewService("test-secret", -time.Hour)

	token, _ := svc.GenerateToken("operator")
	_, err := svc.ValidateToken(token)

	if err != ErrExpiredToken {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestCheckPassword(t *testing.T) {
	password := "mypassword123"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	if !CheckPassword(password, hash) {
		t.Error("expected password to match")
	}
	if CheckPassword("wrongpassword", hash) {
		t.Error("expected wrong password to not match")
	}
}
