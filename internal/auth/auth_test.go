package auth

import (
	"testing"
	"time"

	"github.com/openclass/quiz-service/internal/models"
)

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(4) // low cost keeps the test fast

	hash, err := h.Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !h.Compare(hash, "s3cret-pass") {
		t.Error("Compare should accept the original password")
	}
	if h.Compare(hash, "wrong-pass") {
		t.Error("Compare should reject a wrong password")
	}
}

func TestPasswordHasherInvalidCostFallsBack(t *testing.T) {
	h := NewPasswordHasher(99)
	if _, err := h.Hash("pw-eight"); err != nil {
		t.Fatalf("Hash with fallback cost failed: %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	user := &models.User{ID: 42, Email: "t@example.com", Role: models.RoleTeacher}

	token, err := m.Issue(user)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "t@example.com" || claims.Role != models.RoleTeacher {
		t.Errorf("claims = %+v, want user 42 teacher", claims)
	}
}

func TestTokenExpired(t *testing.T) {
	m := NewTokenManager("test-secret", time.Minute)
	issued := time.Now()
	m.now = func() time.Time { return issued }

	token, err := m.Issue(&models.User{ID: 1, Role: models.RoleStudent})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := m.Verify(token); err != ErrTokenExpired {
		t.Errorf("Verify after expiry = %v, want ErrTokenExpired", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, err := issuer.Issue(&models.User{ID: 1, Role: models.RoleStudent})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := verifier.Verify(token); err != ErrTokenInvalid {
		t.Errorf("Verify with wrong secret = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	if _, err := m.Verify("not.a.token"); err != ErrTokenInvalid {
		t.Errorf("Verify(garbage) = %v, want ErrTokenInvalid", err)
	}
}
