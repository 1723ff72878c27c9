package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"useraccount/api/handler"
	apiMiddleware "useraccount/api/middleware"
	"useraccount/api/routes"
	"useraccount/config"
	"useraccount/internal/messaging"
	"useraccount/internal/notify"
	"useraccount/internal/repository"
	"useraccount/internal/repository/memory"
	"useraccount/internal/service"
	"useraccount/internal/storage"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type stores struct {
	users         repository.UserRepository
	verifications repository.VerificationTokenRepository
	audits        repository.AuditLogRepository
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load(".env", logger)
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("store not available")
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("notifier not available")
	}

	photos, uploadDir, err := newPhotoStorage(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("photo storage not available")
	}

	var events service.EventPublisher
	if cfg.NATSURL != "" {
		publisher, err := messaging.NewNATSPublisher(cfg.NATSURL, "useraccount", logger)
		if err != nil {
			logger.WithError(err).Fatal("nats not available")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.WithError(err).Warn("nats drain failed")
			}
		}()
		events = publisher
	}

	clock := service.RealClock{}
	tokens := service.JWTTokenIssuer{Issuer: cfg.JWTIssuer, Clock: clock}

	authService := service.NewAuthService(
		repos.users,
		repos.verifications,
		repos.audits,
		notifier,
		service.BcryptPasswordHasher{},
		tokens,
		events,
		clock,
		logger,
		service.AuthConfig{
			AccessTokenKey:       []byte(cfg.AccessTokenKey),
			RefreshTokenKey:      []byte(cfg.RefreshTokenKey),
			BaseURL:              cfg.BaseURL,
			AccessTokenTTL:       cfg.AccessTokenTTL,
			RefreshTokenTTL:      cfg.RefreshTokenTTL,
			VerificationTokenTTL: cfg.VerificationTokenTTL,
			ResetTokenTTL:        cfg.ResetTokenTTL,
		},
	)
	userService := service.NewUserService(repos.users, repos.audits, photos, events, clock, logger)

	validate := handler.NewValidator()
	authHandler := handler.NewAuthHandler(authService, validate, logger)
	authHandler.ExposeResetLink = cfg.ExposeResetLink
	userHandler := handler.NewUserHandler(userService, validate, logger)

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.HTTPErrorHandler = handler.ErrorHandler(logger)
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status": v.Status,
				"method": v.Method,
				"uri":    v.URI,
				"ip":     v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	authMiddleware := apiMiddleware.AuthMiddleware{Tokens: tokens, Key: []byte(cfg.AccessTokenKey)}
	router := routes.NewRouter(app, authHandler, userHandler, authMiddleware, userService.RoleOf)
	router.Metrics = apiMiddleware.NewMetrics(registry)
	router.Gatherer = registry
	router.Logger = logger
	router.UploadDir = uploadDir

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("redis not available")
		}
		defer client.Close()
		router.AuthRate = apiMiddleware.NewRedisRateLimiter(client, "auth", 10, time.Second, logger)
		router.LoginRate = apiMiddleware.NewRedisRateLimiter(client, "login", 4, time.Second, logger)
	}
	router.RegisterRoutes()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("server started")
		if err := app.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown failed")
	}
	authService.Wait()
	logger.Info("server stopped")
}

func openStores(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using the in-memory store, data is lost on restart")
		return stores{
			users:         memory.NewUserRepository(),
			verifications: memory.NewVerificationTokenRepository(time.Now),
			audits:        memory.NewAuditLogRepository(),
		}, nil
	}

	db, err := config.ConnectionDb(cfg.DatabaseURL, logger)
	if err != nil {
		return stores{}, err
	}
	if cfg.MigrateOnStart {
		if err := config.Migrate(ctx, db, logger); err != nil {
			return stores{}, err
		}
	}
	return stores{
		users:         repository.NewUserRepository(db),
		verifications: repository.NewVerificationTokenRepository(db),
		audits:        repository.NewAuditLogRepository(db),
	}, nil
}

func newNotifier(cfg *config.Config, logger logrus.FieldLogger) (service.Notifier, error) {
	switch cfg.MailDriver {
	case config.MailDriverResend:
		return notify.NewResendNotifier(cfg.ResendAPIKey, cfg.MailFrom), nil
	case config.MailDriverSMTP:
		return notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			From:       cfg.MailFrom,
			Encryption: cfg.SMTPEncryption,
		}, logger)
	default:
		return notify.LogNotifier{Logger: logger}, nil
	}
}

// newPhotoStorage also returns the directory to serve when photos are kept
// on local disk.
func newPhotoStorage(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (service.PhotoStorage, string, error) {
	if cfg.StorageDriver == config.StorageDriverMinio {
		photos, err := storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		}, logger)
		return photos, "", err
	}
	photos, err := storage.NewLocalStorage(cfg.UploadDir, "/uploads")
	return photos, cfg.UploadDir, err
}
