package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	authapi "go.jumpsca.re/runestone/api/echo"
	rediscache "go.jumpsca.re/runestone/cache/redis"
	"go.jumpsca.re/runestone/config"
	"go.jumpsca.re/runestone/domain"
	"go.jumpsca.re/runestone/internal/auth"
	"go.jumpsca.re/runestone/internal/mail"
	"go.jumpsca.re/runestone/internal/metrics"
	"go.jumpsca.re/runestone/internal/server"
	"go.jumpsca.re/runestone/log"
	"go.jumpsca.re/runestone/mongodb"
	"go.jumpsca.re/runestone/services"
	"go.jumpsca.re/runestone/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	logger := log.NewZerologAdapter(logLevel, cfg.LogPretty)
	ctx := context.Background()

	tracerProvider, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize tracer provider", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	client, db, err := mongodb.Connect(connectCtx, cfg.MongoURI, cfg.MongoDBName)
	cancel()
	if err != nil {
		logger.Fatal(ctx, "Failed to connect to MongoDB", err)
	}

	users, err := mongodb.NewUserRepository(ctx, db)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize user repository", err)
	}
	sessions, err := mongodb.NewSessionRepository(ctx, db)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize session repository", err)
	}
	coupons, err := mongodb.NewCouponRepository(ctx, db)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize coupon repository", err)
	}

	// Login codes are short-lived so a TTL-enforcing store can hold them
	// instead of a collection. With redis configured the codes survive
	// restarts; otherwise they live in MongoDB like everything else.
	var codes domain.LoginCodeRepository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal(ctx, "Failed to connect to redis", err)
		}
		codes = rediscache.NewLoginCodeStore(rdb, services.LoginCodeTTL)
	} else {
		codes, err = mongodb.NewLoginCodeRepository(ctx, db)
		if err != nil {
			logger.Fatal(ctx, "Failed to initialize login code repository", err)
		}
	}

	mailer, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		ReplyTo:  cfg.SMTPReplyTo,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize SMTP mailer", err)
	}

	metrics.InitCustomMetrics(prometheus.DefaultRegisterer)

	hasher := auth.NewPbkdf2PasswordHasher(0)
	authService := services.NewAuthService(users, sessions, codes, hasher, mailer)
	accountService := services.NewAccountService(users, coupons)

	api := authapi.NewAuthAPI(authService, accountService, logger)
	httpServer := server.NewHTTPServer(net.JoinHostPort("", cfg.HTTPPort), api, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error(ctx, "HTTP server failed", err)
		}
	case sig := <-quit:
		logger.Info(ctx, "Shutdown signal received", map[string]interface{}{"signal": sig.String()})
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "HTTP server shutdown failed", err)
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Tracer provider shutdown failed", err)
	}
	mongodb.Disconnect(shutdownCtx, client)

	logger.Info(ctx, "Server stopped")
}
