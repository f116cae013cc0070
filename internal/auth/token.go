package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	svcErr "github.com/campusvote/server/internal/errors"
)

// Session is the authenticated caller identity the rest of the service
// consumes. The gender claim is set at registration and treated as
// immutable, trusted input.
type Session struct {
	UserID string
	Gender string
}

type claims struct {
	Gender string `json:"gender"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token carrying user id and gender.
func IssueToken(secret []byte, ttl time.Duration, userID, gender string) (string, error) {
	now := time.Now()
	c := claims{
		Gender: gender,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}

// ParseToken validates a token and extracts the session. Any validation
// failure maps to ErrAuthRequired; the caller redirects to login.
func ParseToken(secret []byte, token string) (*Session, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, svcErr.Wrap(svcErr.ErrAuthRequired, err)
	}
	if c.Subject == "" {
		return nil, svcErr.ErrAuthRequired
	}
	return &Session{UserID: c.Subject, Gender: c.Gender}, nil
}
