// Package jwttoken issues and validates the bearer tokens that carry a
// participant handle. The token is transport identity only: possession proves
// control of the handle, registration is checked separately by the services.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "croptrace/pkg/domain"
	dErrors "croptrace/pkg/domain-errors"
)

// Claims are the JWT claims for participant access tokens.
type Claims struct {
	Handle string `json:"handle"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken signs a token asserting control of the handle.
func (s *JWTService) GenerateAccessToken(handle id.Handle, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Handle: handle.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   handle.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ExtractHandle validates the token and parses the handle it asserts.
func (s *JWTService) ExtractHandle(tokenString string) (id.Handle, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	handle, err := id.ParseHandle(claims.Handle)
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "token carries an invalid handle")
	}
	return handle, nil
}
