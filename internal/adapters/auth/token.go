package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"volunteerhub/internal/domain"
)

// Identity issuance lives outside this service; we only verify the bearer
// tokens the identity provider hands out and extract (actor id, role).
type jwtClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier returns a TokenVerifier for HS256-signed JWTs carrying the
// actor id in the subject claim and a single role claim.
func NewJWTVerifier(secret string) domain.TokenVerifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) Verify(token string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Actor{}, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return domain.Actor{}, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return domain.Actor{}, fmt.Errorf("token has no subject")
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("token has invalid role %q", claims.Role)
	}
	return domain.Actor{ID: claims.Subject, Role: role}, nil
}
