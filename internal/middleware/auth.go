package middleware

import (
	"net/http"
	"strings"

	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/jwtutil"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/logger"
	"github.com/baawa1/baawa-accessories-inventory-sub000/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const userKey = "user"

// JWTAuthMiddleware creates a middleware that validates bearer tokens issued
// by the identity provider
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				log.Warn("Missing authorization header")
				prometheus.RecordAuthAttempt(true)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing authorization header"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format")
				prometheus.RecordAuthAttempt(true)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid authorization header format"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				prometheus.RecordAuthAttempt(true)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
			}
			prometheus.RecordAuthAttempt(false)

			c.Set(userKey, claims)
			log = log.With(zap.String("user_id", claims.UserID))
			logger.SetEcho(c, log)
			log.Debug("JWT token validated successfully", zap.String("email", claims.Email))

			return next(c)
		}
	}
}

// User returns the claims stored by JWTAuthMiddleware, nil when the request
// was not authenticated
func User(c echo.Context) *jwtutil.UserClaims {
	claims, _ := c.Get(userKey).(*jwtutil.UserClaims)
	return claims
}

// UserID returns the authenticated user's id or ""
func UserID(c echo.Context) string {
	if claims := User(c); claims != nil {
		return claims.UserID
	}
	return ""
}
