package middleware

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"dialist/internal/infrastructure/firebase"
)

type AuthMiddleware struct {
	authClient     *auth.Client
	devTokenSecret string
	environment    string
}

func NewAuthMiddleware(authClient *auth.Client, devTokenSecret, environment string) *AuthMiddleware {
	return &AuthMiddleware{
		authClient:     authClient,
		devTokenSecret: devTokenSecret,
		environment:    environment,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}

		idToken := parts[1]

		token, err := m.authClient.VerifyIDToken(c.Request().Context(), idToken)
		if err != nil {
			if m.environment == "development" {
				if uid, devErr := firebase.ParseDevToken(m.devTokenSecret, idToken); devErr == nil {
					c.Set("uid", uid)
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		c.Set("uid", token.UID)

		return next(c)
	}
}
