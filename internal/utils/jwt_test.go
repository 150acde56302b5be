package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestNewAccessTokenClaims(t *testing.T) {
	id := uuid.New()
	tok, err := NewAccessToken("s3cret", id, "HOST", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if time.Until(tok.Exp) < 59*time.Minute {
		t.Fatalf("expiry %s", tok.Exp)
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(tok.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sub, _ := claims.GetSubject(); sub != id.String() || claims["role"] != "HOST" {
		t.Fatalf("claims %v", claims)
	}

	if _, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("other"), nil }); err == nil {
		t.Fatal("token verified with the wrong secret")
	}
}
