package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anvayfin/lms-backend/internal/config"
	"github.com/anvayfin/lms-backend/internal/domain"
	"github.com/anvayfin/lms-backend/internal/fincore"
	"github.com/anvayfin/lms-backend/internal/handler"
	"github.com/anvayfin/lms-backend/internal/middleware"
	"github.com/anvayfin/lms-backend/internal/repository/postgres"
	"github.com/anvayfin/lms-backend/internal/service"
	ws "github.com/anvayfin/lms-backend/internal/websocket"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	dayCount, err := fincore.ParseDayCount(cfg.DayCountDefault)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid DAY_COUNT_DEFAULT")
	}
	businessDayMode, err := fincore.ParseBusinessDayMode(cfg.BusinessDayMode)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid BUSINESS_DAY_MODE")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	txManager := postgres.NewTxManager(pool)
	accountRepo := postgres.NewLoanAccountRepository(pool)
	scheduleRepo := postgres.NewScheduleRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	accrualRepo := postgres.NewAccrualRepository(pool)
	benchmarkRepo := postgres.NewBenchmarkRepository(pool)
	delinquencyRepo := postgres.NewDelinquencyRepository(pool)
	lifecycleRepo := postgres.NewLifecycleRepository(pool)
	participationRepo := postgres.NewParticipationRepository(pool)
	fldgRepo := postgres.NewFLDGRepository(pool)
	eclRepo := postgres.NewECLRepository(pool)

	// WebSocket hub broadcasts servicing events to connected clients
	hub := ws.NewHub()

	// Initialize services
	locks := service.NewAccountLocks()
	calendar := fincore.NewCalendar(nil)

	delinquencyConfig := service.DefaultDelinquencyConfig()
	delinquencyConfig.SMABoundaries = cfg.SMABoundaries
	delinquencyConfig.NPATriggerDPD = cfg.NPATriggerDPD

	feeConfig := service.DefaultFeeConfig()
	feeConfig.LateFeeRatePct = cfg.LateFeeRatePct
	feeConfig.GraceDays = cfg.LateFeeGraceDays

	scheduleService := service.NewScheduleService(accountRepo, scheduleRepo, txManager, calendar, businessDayMode)
	accountService := service.NewAccountService(accountRepo, scheduleRepo, scheduleService, txManager, dayCount)
	paymentService := service.NewPaymentService(accountRepo, scheduleRepo, paymentRepo, accrualRepo, txManager, locks, fincore.DefaultWaterfall(), hub)
	feeService := service.NewFeeService(accountRepo, scheduleRepo, txManager, locks, feeConfig)
	accrualService := service.NewAccrualService(accountRepo, accrualRepo, benchmarkRepo, txManager, locks, cfg.WorkerPoolSize)
	delinquencyService := service.NewDelinquencyService(accountRepo, scheduleRepo, delinquencyRepo, txManager, locks, delinquencyConfig, cfg.WorkerPoolSize)
	restructureService := service.NewRestructureService(accountRepo, scheduleRepo, lifecycleRepo, txManager, locks)
	prepaymentService := service.NewPrepaymentService(accountRepo, scheduleRepo, lifecycleRepo, txManager, locks, cfg.PrepaymentPenaltyPct)
	fldgService := service.NewFLDGService(fldgRepo, accountRepo, participationRepo, txManager)
	closureService := service.NewClosureService(accountRepo, scheduleRepo, lifecycleRepo, fldgService, txManager, locks)
	colendingService := service.NewColendingService(accountRepo, participationRepo, txManager, locks)
	eclService := service.NewECLService(accountRepo, eclRepo, lifecycleRepo, txManager, locks, domain.DefaultECLConfig(), cfg.WorkerPoolSize)
	eodService := service.NewEODService(accrualService, delinquencyService, eclService, hub)

	// Scheduled end-of-day runs alongside the manual trigger route
	eodWorker := service.NewEODWorker(eodService, log.Logger, service.EODWorkerConfig{
		Interval: time.Duration(cfg.EODIntervalMinutes) * time.Minute,
	})
	eodWorker.Start(context.Background())
	defer eodWorker.Stop()

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountService, scheduleService)
	paymentHandler := handler.NewPaymentHandler(paymentService, paymentRepo)
	feeHandler := handler.NewFeeHandler(feeService)
	accrualHandler := handler.NewAccrualHandler(accrualService)
	delinquencyHandler := handler.NewDelinquencyHandler(delinquencyService)
	restructureHandler := handler.NewRestructureHandler(restructureService)
	prepaymentHandler := handler.NewPrepaymentHandler(prepaymentService)
	closureHandler := handler.NewClosureHandler(closureService)
	colendingHandler := handler.NewColendingHandler(colendingService)
	fldgHandler := handler.NewFLDGHandler(fldgService)
	eclHandler := handler.NewECLHandler(eclService)
	eodHandler := handler.NewEODHandler(eodService)
	wsHandler := handler.NewWebSocketHandler(hub, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Rate limiting
	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	e.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Domain error mapping to problem details
	e.Use(middleware.ErrorHandler())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Register API routes
	handler.RegisterRoutes(e, accountHandler, paymentHandler, feeHandler, accrualHandler, delinquencyHandler, restructureHandler, prepaymentHandler, closureHandler, colendingHandler, fldgHandler, eclHandler, eodHandler, wsHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
