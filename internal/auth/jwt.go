package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"campusevents/internal/model"
)

// Claims is the bearer token payload minted by the identity service.
type Claims struct {
	Role       model.Role `json:"role"`
	Department string     `json:"department,omitempty"`
	Semester   int        `json:"semester,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the authenticated caller.
func (c Claims) Principal() model.Principal {
	return model.Principal{
		ID:         c.Subject,
		Role:       c.Role,
		Department: c.Department,
		Semester:   c.Semester,
	}
}

// Issue signs an HS256 access token for p. The core never logs anyone in;
// this exists for cmd/devtoken and tests.
func Issue(p model.Principal, issuer, key string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:       p.Role,
		Department: p.Department,
		Semester:   p.Semester,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	if claims.Subject == "" {
		return Claims{}, errors.New("missing subject")
	}
	switch claims.Role {
	case model.RoleStudent, model.RoleFaculty, model.RoleHOD, model.RoleAdmin:
	default:
		return Claims{}, errors.New("unknown role")
	}
	return *claims, nil
}
