package middleware

import (
	"context"
	"net/http"

	"useraccount/internal/entity"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RoleLookup reports the stored role of an account.
type RoleLookup func(ctx context.Context, id uuid.UUID) (entity.UserRole, error)

// RequireSelfOrAdmin lets a caller through when the :id path parameter is
// their own account or when they hold the admin role. Must run after
// RequireAuth.
func RequireSelfOrAdmin(lookup RoleLookup, logger logrus.FieldLogger) echo.MiddlewareFunc {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			accountID, ok := AccountIDFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			if target, err := uuid.Parse(c.Param("id")); err == nil && target == accountID {
				return next(c)
			}

			role, err := lookup(c.Request().Context(), accountID)
			if err != nil {
				logger.WithError(err).WithField("account_id", accountID).Warn("role lookup failed")
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			if role != entity.UserRoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
