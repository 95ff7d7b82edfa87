package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	adminRole   = "admin"
	adminIDKey  = "admin_id"
	tokenIssuer = "chatguard-service"
)

// GenerateAdminToken issues an HS256 token that grants access to the admin routes.
func GenerateAdminToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("admin jwt secret is empty")
	}
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": adminRole,
		"exp":  time.Now().Add(ttl).Unix(),
		"iss":  tokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// AdminAuth rejects requests without a valid admin bearer token.
func AdminAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}

		subject, err := validateAdminToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}

		c.Set(adminIDKey, subject)
		c.Next()
	}
}

func validateAdminToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != adminRole {
		return "", errors.New("token does not carry the admin role")
	}
	subject, _ := claims.GetSubject()
	return subject, nil
}
