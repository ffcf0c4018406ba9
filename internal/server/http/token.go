package httpserver

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kodamarket/koda/internal/model"
)

// Claims is the session token issued by the identity provider.
type Claims struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Username   string `json:"username"`
	Picture    string `json:"picture"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 session tokens.
type TokenVerifier struct {
	key    []byte
	leeway time.Duration
}

// NewTokenVerifier returns a verifier; leeway tolerates clock skew on exp/nbf/iat.
func NewTokenVerifier(key []byte, leeway time.Duration) *TokenVerifier {
	return &TokenVerifier{key: key, leeway: leeway}
}

// Verify parses raw and returns the identity it carries. The subject is the user id.
func (v *TokenVerifier) Verify(raw string) (model.User, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.key, nil
	}, jwt.WithLeeway(v.leeway))
	if err != nil || !parsed.Valid {
		return model.User{}, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return model.User{}, errors.New("bad subject")
	}
	return model.User{
		ID:        claims.Subject,
		Email:     claims.Email,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
		Username:  claims.Username,
		ImageURL:  claims.Picture,
	}, nil
}

func bearerToken(header string) (string, error) {
	v := strings.TrimSpace(header)
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		if t := strings.TrimSpace(v[7:]); t != "" {
			return t, nil
		}
	}
	return "", errors.New("no bearer token")
}
