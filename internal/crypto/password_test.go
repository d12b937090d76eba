package crypto

import (
	"errors"
	"strings"
	"testing"
)

var fastParams = KeyParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16}

func TestHashPassword_RoundTrip(t *testing.T) {
	encoded, err := HashPassword("correct horse", fastParams)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Errorf("HashPassword() = %q, unexpected format", encoded)
	}

	ok, err := VerifyPassword("correct horse", encoded)
	if err != nil || !ok {
		t.Errorf("VerifyPassword() = %v, %v, want true", ok, err)
	}

	ok, err = VerifyPassword("wrong", encoded)
	if err != nil || ok {
		t.Errorf("VerifyPassword(wrong) = %v, %v, want false", ok, err)
	}
}

func TestHashPassword_UniqueSalt(t *testing.T) {
	a, _ := HashPassword("pw", fastParams)
	b, _ := HashPassword("pw", fastParams)
	if a == b {
		t.Error("HashPassword() produced identical hashes for the same password")
	}
}

func TestVerifyPassword_InvalidFormat(t *testing.T) {
	for _, encoded := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", "$argon2id$v=19$bad$c2FsdA$aGFzaA"} {
		if _, err := VerifyPassword("pw", encoded); !errors.Is(err, ErrInvalidHashFormat) {
			t.Errorf("VerifyPassword(%q) error = %v, want ErrInvalidHashFormat", encoded, err)
		}
	}
}

func TestVerifyPassword_WrongVersion(t *testing.T) {
	if _, err := VerifyPassword("pw", "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$aGFzaA"); !errors.Is(err, ErrIncompatibleVersion) {
		t.Errorf("VerifyPassword() error = %v, want ErrIncompatibleVersion", err)
	}
}
