// Package main runs the webinar platform HTTP server with WebSocket chat and
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	stripeclient "github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pipecast/backend/config"
	"github.com/pipecast/backend/internal/attendance"
	"github.com/pipecast/backend/internal/auth"
	"github.com/pipecast/backend/internal/health"
	"github.com/pipecast/backend/internal/mfa"
	"github.com/pipecast/backend/internal/middleware"
	"github.com/pipecast/backend/internal/models"
	"github.com/pipecast/backend/internal/payments"
	"github.com/pipecast/backend/internal/realtime"
	"github.com/pipecast/backend/internal/webinars"
	"github.com/pipecast/backend/pkg/database"
	"github.com/pipecast/backend/pkg/queue"
	"github.com/pipecast/backend/pkg/redis"
	"github.com/pipecast/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			RecordingsBucket:     cfg.AWS.RecordingsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	stripeAPI := &stripeclient.API{}
	stripeAPI.Init(cfg.Stripe.SecretKey, nil)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	bridge := realtime.NewRedisBridge(rdb.Client, logger)
	hub := realtime.NewHub(logger, bridge, bridge)

	// Auth + MFA
	authRepo := auth.NewRepository(pool)
	mfaRepo := mfa.NewRepository(pool)
	mfaService := mfa.NewService(mfaRepo, cfg.MFA.Issuer, cfg.MFA.BackupCodeCount, logger)
	mfaHandler := mfa.NewHandler(mfaService, logger)
	authHandler := auth.NewHandler(authRepo, jwtService, mfaService, logger)

	// Webinars
	webinarRepo := webinars.NewRepository(pool)
	listCache := webinars.NewListCache(rdb.Client, time.Duration(cfg.Webinar.ListCacheTTLSeconds)*time.Second, logger)
	webinarHandler := webinars.NewHandler(webinarRepo, listCache, s3Client, hub, cfg.Webinar.DefaultDurationMinutes, logger)

	// Attendance pipeline
	jobQueue := queue.NewQueue(rdb.Client, logger)
	attendanceRepo := attendance.NewRepository(pool)
	attendanceHandler := attendance.NewHandler(attendanceRepo, webinarRepo, jobQueue, logger)

	// Payments
	paymentsHandler := payments.NewHandler(stripeAPI, cfg.Stripe, authRepo, attendanceRepo, webinarRepo, logger)

	// Health
	healthHandler := health.NewHandler(pool, rdb, time.Now())

	chatGate := webinars.NewChatGate(webinarRepo)
	wsValidate := func(token string) (uuid.UUID, string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.UserID, claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/api/health", healthHandler.Get)
	router.HEAD("/api/health", healthHandler.Head)
	router.OPTIONS("/api/health", healthHandler.Options)

	// WebSocket (token via query string)
	router.GET("/ws", realtime.ServeWs(hub, chatGate, wsValidate, logger))

	// Public: attendee registration doubles as join-now when live
	router.POST("/webinars/:id/register", attendanceHandler.Register)

	// Public: payment provider redirects and attendee checkout
	router.GET("/payments/connect/callback", paymentsHandler.ConnectCallback)
	router.POST("/payments/checkout", paymentsHandler.Checkout)

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/login/mfa", authHandler.LoginMFA)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)

		// Webinars
		api.GET("/webinars", webinarHandler.List)
		api.POST("/webinars", webinarHandler.Create)
		api.GET("/webinars/:id", webinarHandler.GetByID)
		api.PATCH("/webinars/:id/status", webinarHandler.ChangeStatus)
		api.DELETE("/webinars/:id", webinarHandler.Delete)
		api.POST("/webinars/:id/recording", webinarHandler.UploadRecording)
		api.GET("/webinars/:id/recording", webinarHandler.RecordingDownloadURL)

		// Pipeline
		api.GET("/webinars/:id/pipeline", attendanceHandler.Pipeline)
		api.POST("/webinars/:id/attendees/:attendeeId/stage", attendanceHandler.AdvanceStage)
		api.PATCH("/attendees/:id/call-status", attendanceHandler.UpdateCallStatus)

		// MFA
		mfaGroup := api.Group("/mfa")
		{
			mfaGroup.GET("/setup", mfaHandler.Setup)
			mfaGroup.POST("/enable", mfaHandler.Enable)
			mfaGroup.POST("/disable", mfaHandler.Disable)
			mfaGroup.POST("/backup-codes/regenerate", mfaHandler.RegenerateBackupCodes)
			mfaGroup.GET("/status", mfaHandler.GetStatus)
			mfaGroup.POST("/verify", mfaHandler.Verify)
		}

		// Payments
		api.GET("/payments/connect-link", paymentsHandler.ConnectLink)
		api.GET("/payments/products", paymentsHandler.ListProducts)
		api.POST("/payments/subscribe", paymentsHandler.Subscribe)
		api.POST("/webinars/:id/product", middleware.RequireRole(string(models.RolePresenter), string(models.RoleAdmin)), paymentsHandler.CreateWebinarProduct)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
