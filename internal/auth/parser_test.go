package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nurpe/energy-contracts/internal/model"
)

func TestIssueAndParse(t *testing.T) {
	parser := NewParser("secret")
	principal := model.Principal{UserID: uuid.New(), Role: model.UserRoleBackdesk}

	token, err := parser.Issue(principal, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	parsed, err := parser.Parse(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if parsed != principal {
		t.Fatalf("expected %+v, got %+v", principal, parsed)
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	token, err := NewParser("other").Issue(model.Principal{UserID: uuid.New(), Role: model.UserRoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := NewParser("secret").Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	parser := NewParser("secret")
	token, err := parser.Issue(model.Principal{UserID: uuid.New(), Role: model.UserRoleAdmin}, -time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := parser.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsMissingRole(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := NewParser("secret").Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsBlank(t *testing.T) {
	if _, err := NewParser("secret").Parse("  "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
