package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const ctxPrincipal ctxKey = "principal"

// Principal is the authenticated caller. AccountID is the token subject.
type Principal struct {
	AccountID string
	Role      models.AccountKind
}

// Claims are the bearer token claims issued by the identity provider.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HMAC-signed bearer tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses the token and returns its principal.
func (v *TokenVerifier) Verify(tokenString string) (*Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, apperrors.NewUnauthorizedError("invalid or expired token")
	}

	role := models.AccountKind(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return nil, apperrors.NewUnauthorizedError("token lacks subject or role")
	}
	return &Principal{AccountID: claims.Subject, Role: role}, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apperrors.NewUnauthorizedError("missing Authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", apperrors.NewUnauthorizedError("invalid Authorization header")
	}
	return strings.TrimSpace(token), nil
}

func withPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFrom returns the caller stored by the auth middleware.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(*Principal)
	return p, ok
}
