package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/veridoc/veridoc/internal/document"
	"github.com/veridoc/veridoc/pkg/middleware"
)

// GenerateServiceToken creates a signed JWT carrying the actor's identity,
// tenant and admin flag. Used by deployments without an external identity
// provider (and by integration tests).
func GenerateServiceToken(secret string, actor document.Actor, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":    actor.UserID,
		"email":  actor.Email,
		"tenant": actor.TenantID,
		"admin":  actor.Admin,
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// JWTVerifier validates HS256 service tokens. It satisfies the auth
// middleware's Verifier interface.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

type jwtToken struct {
	claims jwt.MapClaims
}

func (t *jwtToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.claims
		return nil
	}
	return fmt.Errorf("unsupported claims type %T", v)
}

// Verify parses and validates the raw token, returning its claims.
func (ver *JWTVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return ver.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return &jwtToken{claims: claims}, nil
}
