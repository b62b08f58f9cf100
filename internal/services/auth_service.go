package services

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"vznosBot/internal/models"
)

const adminTokenTTL = 12 * time.Hour

type adminClaims struct {
	jwt.StandardClaims
	Role string `json:"role"`
}

// AuthService issues admin tokens for the management API.
type AuthService struct {
	PasswordHash string
	JWTSecret    string
}

// SignIn checks the password against the configured bcrypt hash and returns
// a signed access token.
func (s *AuthService) SignIn(_ context.Context, password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)); err != nil {
		return "", models.ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &adminClaims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(adminTokenTTL).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
		Role: "admin",
	})
	return token.SignedString([]byte(s.JWTSecret))
}

// VerifyToken parses an access token and reports whether it carries the
// admin role.
func (s *AuthService) VerifyToken(accessToken string) error {
	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, models.ErrInvalidCredentials
		}
		return []byte(s.JWTSecret), nil
	})
	if err != nil || !token.Valid || claims.Role != "admin" {
		return models.ErrInvalidCredentials
	}
	return nil
}
