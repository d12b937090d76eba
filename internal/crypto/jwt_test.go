package crypto

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignToken(t *testing.T) {
	token, err := SignToken("a@x.com", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("SignToken() unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("SignToken() returned empty string")
	}
}

func TestDecodeIdentity(t *testing.T) {
	token, err := SignToken("a@x.com", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("SignToken() unexpected error: %v", err)
	}

	id, err := DecodeIdentity(token)
	if err != nil {
		t.Fatalf("DecodeIdentity() unexpected error: %v", err)
	}
	if id.Subject != "a@x.com" {
		t.Errorf("DecodeIdentity() Subject = %q, want %q", id.Subject, "a@x.com")
	}
	if id.Expired(time.Now()) {
		t.Error("DecodeIdentity() identity should not be expired")
	}
}

func TestDecodeIdentityIgnoresSignature(t *testing.T) {
	token, err := SignToken("a@x.com", "some-other-secret", time.Hour)
	if err != nil {
		t.Fatalf("SignToken() unexpected error: %v", err)
	}

	if _, err := DecodeIdentity(token); err != nil {
		t.Errorf("DecodeIdentity() should not need the signing secret: %v", err)
	}
}

func TestDecodeIdentityExpiredStillDecodes(t *testing.T) {
	token, err := SignToken("a@x.com", "test-secret", -time.Minute)
	if err != nil {
		t.Fatalf("SignToken() unexpected error: %v", err)
	}

	id, err := DecodeIdentity(token)
	if err != nil {
		t.Fatalf("DecodeIdentity() unexpected error: %v", err)
	}
	if !id.Expired(time.Now()) {
		t.Error("expected identity to be expired")
	}
}

func TestDecodeIdentityMalformed(t *testing.T) {
	if _, err := DecodeIdentity("not-a-valid-token"); err != ErrInvalidToken {
		t.Errorf("DecodeIdentity() expected ErrInvalidToken, got %v", err)
	}
}

func TestDecodeIdentityMissingExpiry(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "a@x.com"})
	tokenString, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() unexpected error: %v", err)
	}

	if _, err := DecodeIdentity(tokenString); err != ErrInvalidToken {
		t.Errorf("DecodeIdentity() expected ErrInvalidToken, got %v", err)
	}
}

func TestDecodeIdentityMissingSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tokenString, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() unexpected error: %v", err)
	}

	if _, err := DecodeIdentity(tokenString); err != ErrInvalidToken {
		t.Errorf("DecodeIdentity() expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateTokenValid(t *testing.T) {
	token, err := SignToken("a@x.com", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("SignToken() unexpected error: %v", err)
	}

	id, err := ValidateToken(token, "test-secret")
	if err != nil {
		t.Fatalf("ValidateToken() unexpected error: %v", err)
	}
	if id.Subject != "a@x.com" {
		t.Errorf("ValidateToken() Subject = %q", id.Subject)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := SignToken("a@x.com", "correct-secret", time.Hour)
	if err != nil {
		t.Fatalf("SignToken() unexpected error: %v", err)
	}

	if _, err := ValidateToken(token, "wrong-secret"); err == nil {
		t.Error("ValidateToken() expected error for wrong secret")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := SignToken("a@x.com", "test-secret", time.Millisecond)
	if err != nil {
		t.Fatalf("SignToken() unexpected error: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := ValidateToken(token, "test-secret"); err == nil {
		t.Error("ValidateToken() expected error for expired token")
	}
}
