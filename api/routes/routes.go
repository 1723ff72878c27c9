package routes

import (
	"net/http"
	"time"

	"useraccount/api/handler"
	"useraccount/api/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const photoBodyLimit = "3M"

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	Users          *handler.UserHandler
	AuthMiddleware middleware.AuthMiddleware
	RoleLookup     middleware.RoleLookup
	AuthRate       middleware.Limiter
	LoginRate      middleware.Limiter
	Metrics        *middleware.Metrics
	Gatherer       prometheus.Gatherer
	Logger         logrus.FieldLogger
	// UploadDir is served under /uploads when photos are stored locally.
	UploadDir string
}

func NewRouter(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	authMiddleware middleware.AuthMiddleware,
	roleLookup middleware.RoleLookup,
) *Router {
	return &Router{
		Echo:           e,
		Auth:           authHandler,
		Users:          userHandler,
		AuthMiddleware: authMiddleware,
		RoleLookup:     roleLookup,
		AuthRate:       middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo

	if r.Metrics != nil {
		e.Use(r.Metrics.Middleware())
	}
	if r.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(r.Gatherer, promhttp.HandlerOpts{})))
	}
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if r.UploadDir != "" {
		e.Static("/uploads", r.UploadDir)
	}

	users := e.Group("/users")

	users.POST("/register", r.Auth.Register, r.AuthRate.Middleware())
	users.POST("/login", r.Auth.Login, r.LoginRate.Middleware())
	users.POST("/refresh-token", r.Auth.Refresh, r.AuthRate.Middleware())
	users.POST("/verification", r.Auth.SendVerification, r.AuthRate.Middleware())
	users.GET("/verify-email", r.Auth.VerifyEmail, r.AuthRate.Middleware())
	users.POST("/verify-email", r.Auth.VerifyEmail, r.AuthRate.Middleware())
	users.POST("/forgot-password", r.Auth.ForgotPassword, r.LoginRate.Middleware())
	users.POST("/reset-password", r.Auth.ResetPassword, r.LoginRate.Middleware())

	users.GET("", r.Users.List, r.AuthMiddleware.RequireAuth)
	users.GET("/me", r.Users.Me, r.AuthMiddleware.RequireAuth)
	users.GET("/:id", r.Users.Get, r.AuthMiddleware.RequireAuth)
	users.PUT("/:id", r.Users.Update,
		echomw.BodyLimit(photoBodyLimit),
		r.AuthMiddleware.RequireAuth,
		middleware.RequireSelfOrAdmin(r.RoleLookup, r.Logger),
	)
	users.DELETE("/:id", r.Users.Delete, r.AuthMiddleware.RequireAuth, middleware.RequireSelfOrAdmin(r.RoleLookup, r.Logger))
}
