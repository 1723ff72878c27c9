package middleware

import (
	"net/http"
	"strings"

	"useraccount/internal/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type TokenParser interface {
	Parse(token string, secret []byte, purpose utils.TokenPurpose) (*utils.Claims, error)
}

// AuthMiddleware admits requests that carry a valid access token in the
// Authorization header.
type AuthMiddleware struct {
	Tokens TokenParser
	Key    []byte
}

func (m AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.Tokens == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		token := extractBearerToken(c.Request())
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		claims, err := m.Tokens.Parse(token, m.Key, utils.PurposeAccess)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		accountID, err := uuid.Parse(claims.AccountID)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		SetAuthContext(c, accountID, claims.Email)
		return next(c)
	}
}

func extractBearerToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return ""
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
