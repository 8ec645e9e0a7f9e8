package middleware

import (
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
				c.Request().Header.Set(echo.HeaderXRequestID, requestID)
			}

			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			// Every log line of the request carries its id
			logger.SetEcho(c, logger.GetLogger().With(zap.String("request_id", requestID)))

			return next(c)
		}
	}
}
