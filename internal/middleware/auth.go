package middleware

import (
	"errors"
	"net/http"
	"strings"

	"backend/internal/models"
	"backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const principalKey = "principal"

// RequireAuth creates a Gin middleware for JWT authentication. Requests
// without a valid bearer token are rejected with 401.
func RequireAuth(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseBearer(c)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
				c.Abort()
				return
			}
			logger.Debug("Rejected unauthenticated request", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set(principalKey, models.Authenticated{
			UserID:   claims.UserID,
			Username: claims.Username,
			Role:     claims.Role,
		})
		c.Next()
	}
}

// OptionalAuth resolves a bearer token when present. A missing or invalid
// token leaves the caller anonymous instead of rejecting the request.
func OptionalAuth(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseBearer(c)
		if err != nil {
			if c.GetHeader("Authorization") != "" {
				logger.Debug("Ignoring invalid bearer token on optional-auth route", zap.Error(err))
			}
			c.Set(principalKey, models.Anonymous{})
			c.Next()
			return
		}

		c.Set(principalKey, models.Authenticated{
			UserID:   claims.UserID,
			Username: claims.Username,
			Role:     claims.Role,
		})
		c.Next()
	}
}

// RequireRole restricts a route to authenticated principals with the given
// role. Must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, ok := PrincipalFrom(c).(models.Authenticated); ok && p.Role == role {
			c.Next()
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		c.Abort()
	}
}

// PrincipalFrom returns the caller identity set by the auth middleware.
// Routes without auth middleware resolve to Anonymous.
func PrincipalFrom(c *gin.Context) models.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(models.Principal); ok {
			return p
		}
	}
	return models.Anonymous{}
}

func parseBearer(c *gin.Context) (*models.Claims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errors.New("Authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errors.New("Authorization header format must be Bearer <token>")
	}

	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is what we expect
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return service.GetJWTSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
