package auth

import (
	"errors"
	"testing"
	"time"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash should not equal the plain password")
	}
	if !CheckPasswordHash("s3cret-pass", hash) {
		t.Error("expected matching password to verify")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("expected wrong password to be rejected")
	}
}

func TestTokenManager(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		m := NewTokenManager("test-secret", time.Hour)
		token, err := m.GenerateToken("user-1", "a@example.com")
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		claims, err := m.ParseToken(token)
		if err != nil {
			t.Fatalf("failed to parse token: %v", err)
		}
		if claims.UserID != "user-1" {
			t.Errorf("expected user-1, got %s", claims.UserID)
		}
		if claims.Email != "a@example.com" {
			t.Errorf("expected a@example.com, got %s", claims.Email)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := NewTokenManager("one", time.Hour).GenerateToken("user-1", "")
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		if _, err := NewTokenManager("two", time.Hour).ParseToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		m := NewTokenManager("test-secret", time.Minute)
		issued := time.Now().Add(-time.Hour)
		m.now = func() time.Time { return issued }
		token, err := m.GenerateToken("user-1", "")
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		m.now = time.Now
		if _, err := m.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		m := NewTokenManager("test-secret", time.Hour)
		if _, err := m.ParseToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}
