package middleware

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

func TestBlacklist_ConcurrentAccess(t *testing.T) {
	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("race-token-%d", i)
			BlacklistToken(token, time.Now().Add(time.Hour))
			if !IsTokenBlacklisted(token) {
				t.Errorf("token %s should be blacklisted right after insertion", token)
			}
			if i%5 == 0 {
				sweepBlacklist(time.Now())
			}
		}(i)
	}
	wg.Wait()

	// unexpired entries survive the sweeps
	for i := 0; i < workers; i++ {
		token := fmt.Sprintf("race-token-%d", i)
		if !IsTokenBlacklisted(token) {
			t.Errorf("token %s lost before expiry", token)
		}
	}
}

func TestSweepBlacklist_RemovesOnlyExpired(t *testing.T) {
	BlacklistToken("sweep-expired", time.Now().Add(-time.Minute))
	BlacklistToken("sweep-live", time.Now().Add(time.Hour))

	sweepBlacklist(time.Now())

	if IsTokenBlacklisted("sweep-expired") {
		t.Error("expired token should be swept")
	}
	if !IsTokenBlacklisted("sweep-live") {
		t.Error("live token should survive the sweep")
	}
}

func TestGenerateJWT_RoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-signing-secret")

	token, refresh, err := GenerateJWT("64f0c1b2a3d4e5f601020304", "user@example.com")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if token == "" || refresh == "" {
		t.Fatal("expected both access and refresh tokens")
	}

	parsed, err := jwt.ParseWithClaims(token, &JwtCustomClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(GetJWTSecret()), nil
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	claims, ok := parsed.Claims.(*JwtCustomClaims)
	if !ok || !parsed.Valid {
		t.Fatalf("expected valid custom claims, got %#v", parsed.Claims)
	}
	if claims.UserID != "64f0c1b2a3d4e5f601020304" || claims.Email != "user@example.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestGenerateJWT_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, _, err := GenerateJWT("id", "user@example.com"); err == nil {
		t.Fatal("expected an error without JWT_SECRET")
	}
}
