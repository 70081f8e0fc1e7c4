package utils // package utils provides helper functions for session tokens and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

// Roles carried in the "role" claim.
const (
	RoleSession = "session" // a client session owning one hold token
	RoleAdmin   = "admin"   // an operator allowed to trigger maintenance
)

// SignedToken is a signed JWT along with its expiry.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims is the subset of JWT claims the service relies on.
type Claims struct {
	Subject string // hold token for sessions, "admin" for operators
	Role    string
}

// ErrInvalidToken is returned by ParseToken for any token that does not
// verify or lacks the expected claims.
var ErrInvalidToken = errors.New("invalid token")

// NewSessionToken wraps a hold token in an HS256 JWT.  The hold token is
// the subject; seat operations read it back from there so a client can
// never act on a hold it was not issued.
func NewSessionToken(secret, holdToken string, ttl time.Duration) (SignedToken, error) {
	return sign(secret, holdToken, RoleSession, ttl)
}

// NewAdminToken issues a short-lived operator token.
func NewAdminToken(secret string, ttl time.Duration) (SignedToken, error) {
	return sign(secret, RoleAdmin, RoleAdmin, ttl)
}

func sign(secret, sub, role string, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// ParseToken verifies raw against secret and returns its claims.  Only
// HMAC signatures are accepted; expired tokens are rejected by the
// library's standard exp validation.
func ParseToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	role, _ := mc["role"].(string)
	if sub == "" || role == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{Subject: sub, Role: role}, nil
}
