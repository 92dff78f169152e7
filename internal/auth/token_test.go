package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret")

	token, err := issuer.Issue("session-1", "user-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.SessionID != "session-1" || claims.Subject != "user-1" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("secret")
	valid, _ := issuer.Issue("s", "u", time.Now().Add(time.Hour))
	expired, _ := issuer.Issue("s", "u", time.Now().Add(-time.Minute))
	otherKey, _ := NewTokenIssuer("other").Issue("s", "u", time.Now().Add(time.Hour))

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		SessionID:        "s",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer, Subject: "u", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"empty":     "",
		"expired":   expired,
		"wrong key": otherKey,
		"alg none":  none,
		"tampered":  valid + "x",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := issuer.Parse(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
