package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	quoteapp "github.com/quotedesk/backend/internal/application/quote"
	"github.com/quotedesk/backend/internal/infrastructure/auth"
	"github.com/quotedesk/backend/internal/infrastructure/cache"
	"github.com/quotedesk/backend/internal/infrastructure/config"
	"github.com/quotedesk/backend/internal/infrastructure/event"
	"github.com/quotedesk/backend/internal/infrastructure/logger"
	"github.com/quotedesk/backend/internal/infrastructure/persistence"
	"github.com/quotedesk/backend/internal/infrastructure/storage"
	"github.com/quotedesk/backend/internal/interfaces/http/handler"
	"github.com/quotedesk/backend/internal/interfaces/http/middleware"
	"github.com/quotedesk/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/quotedesk/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			QuoteDesk API
//	@version		1.0
//	@description	Quote lifecycle and public signing API

//	@contact.name	API Support
//	@contact.url	https://github.com/quotedesk/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting QuoteDesk Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)

	// Signature storage: S3 (or any S3-compatible endpoint) in normal
	// operation, in-memory when object storage is not configured.
	var signatureStore quoteapp.SignatureStore
	s3Store, err := storage.NewS3SignatureStore(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Warn("Object storage not configured, signature images are kept in memory", zap.Error(err))
		signatureStore = storage.NewMemorySignatureStore()
	} else {
		bucketCtx, cancelBucket := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s3Store.EnsureBucket(bucketCtx); err != nil {
			log.Fatal("Signature bucket unavailable", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
		cancelBucket()
		signatureStore = s3Store
		log.Info("Signature storage ready",
			zap.String("bucket", cfg.Storage.Bucket),
			zap.String("region", cfg.Storage.Region),
		)
	}

	// Public projection cache: Redis with in-memory fallback
	var projectionCache quoteapp.ProjectionCache
	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	redisCache, err := cache.NewRedisProjectionCache(redisAddr, cfg.Redis.Password, cfg.Redis.DB,
		cache.WithProjectionTTL(cfg.Quote.PublicCacheTTL),
		cache.WithCacheLogger(log),
	)
	if err != nil {
		log.Warn("Redis unavailable, caching public projections in memory", zap.Error(err))
		projectionCache = cache.NewInMemoryProjectionCache(cfg.Quote.PublicCacheTTL)
	} else {
		projectionCache = redisCache
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		log.Info("Projection cache connected", zap.String("addr", redisAddr))
	}

	// Domain event bus with the audit log consumer
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))

	// JWT service for the privileged API
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize application services
	quoteService := quoteapp.NewQuoteService(quoteRepo)
	quoteService.SetEventPublisher(eventBus)
	quoteService.SetDefaultValidityDays(cfg.Quote.DefaultValidityDays)

	publicQuoteService := quoteapp.NewPublicQuoteService(quoteRepo, signatureStore)
	publicQuoteService.SetProjectionCache(projectionCache)
	publicQuoteService.SetEventPublisher(eventBus)

	// Initialize handlers
	quoteHandler := handler.NewQuoteHandler(quoteService)
	publicQuoteHandler := handler.NewPublicQuoteHandler(publicQuoteService)
	systemHandler := handler.NewSystemHandler()

	// Setup gin
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxy configuration", zap.Error(err))
		}
	}

	// Middleware order matters:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Swagger documentation endpoint
	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// JWT authentication covers the privileged API; the signing link and
	// the system endpoints stay open.
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		SkipPathPrefixes: []string{
			"/api/v1/public",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Privileged quote routes
	quoteRoutes := router.NewDomainGroup("quotes", "/quotes")
	quoteRoutes.POST("", quoteHandler.Create)
	quoteRoutes.GET("", quoteHandler.List)
	quoteRoutes.GET("/stats", quoteHandler.Stats)
	quoteRoutes.GET("/:id", quoteHandler.GetByID)
	quoteRoutes.PUT("/:id", quoteHandler.Update)
	quoteRoutes.DELETE("/:id", quoteHandler.Delete)
	quoteRoutes.POST("/:id/approve", quoteHandler.Approve)
	quoteRoutes.POST("/:id/reject", quoteHandler.Reject)
	r.Register(quoteRoutes)

	// Public signing routes, rate limited per client address
	publicRoutes := router.NewDomainGroup("public", "/public")
	if cfg.HTTP.PublicRateLimitEnabled {
		publicLimiter := middleware.NewRateLimiter(cfg.HTTP.PublicRateLimitRequests, cfg.HTTP.PublicRateLimitWindow)
		publicRoutes.Use(middleware.RateLimit(publicLimiter))
		log.Info("Public rate limiting enabled",
			zap.Int("requests", cfg.HTTP.PublicRateLimitRequests),
			zap.Duration("window", cfg.HTTP.PublicRateLimitWindow),
		)
	}
	publicRoutes.GET("/quotes/:public_id", publicQuoteHandler.GetByPublicID)
	publicRoutes.POST("/quotes/:public_id/sign", publicQuoteHandler.Sign)
	r.Register(publicRoutes)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
