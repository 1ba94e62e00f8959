package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stemsi/exam-portal/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return NewAuthService(&config.Config{
		JWTSecret:            "test-secret",
		SessionTTL:           time.Hour,
		OperatorEmail:        "ops@example.edu",
		OperatorPasswordHash: string(hash),
	})
}

func TestSessionToken(t *testing.T) {
	s := newAuthService(t)

	tok, err := s.GenerateSessionToken("sess-42", "1001")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	claims, err := s.ValidateToken(tok)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.ID != "sess-42" || claims.StudentID != "1001" || claims.TokenType != TokenTypeSession {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestTokenExpiry(t *testing.T) {
	s := newAuthService(t)
	tok, err := s.GenerateSessionToken("sess-42", "1001")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.ValidateToken(tok); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	s := newAuthService(t)
	tok, _ := s.GenerateSessionToken("sess-42", "1001")

	other := NewAuthService(&config.Config{JWTSecret: "other", SessionTTL: time.Hour})
	if _, err := other.ValidateToken(tok); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
}

func TestOperatorLogin(t *testing.T) {
	s := newAuthService(t)

	tok, err := s.OperatorLogin(" OPS@example.edu ", "hunter22")
	if err != nil {
		t.Fatalf("OperatorLogin: %v", err)
	}
	claims, err := s.ValidateToken(tok)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.TokenType != TokenTypeOperator || claims.Subject != "ops@example.edu" {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := s.OperatorLogin("ops@example.edu", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.OperatorLogin("someone@example.edu", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong email: expected ErrInvalidCredentials, got %v", err)
	}

	disabled := NewAuthService(&config.Config{JWTSecret: "x"})
	if _, err := disabled.OperatorLogin("ops@example.edu", "hunter22"); !errors.Is(err, ErrOperatorDisabled) {
		t.Errorf("expected ErrOperatorDisabled, got %v", err)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter22")) != nil {
		t.Error("hash does not verify")
	}
}
