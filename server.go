package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/middlewares"
	"bitbucket.org/pratesvistorias/vistorias_backend/models"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"bitbucket.org/pratesvistorias/vistorias_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("vistorias-backend")

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// PubSubMessage is the push-subscription envelope.
type PubSubMessage struct {
	Message struct {
		Data []byte `json:"data,omitempty"`
		ID   string `json:"id"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

// jobsPubSubHandler executes queued import/calculation jobs delivered by
// the push subscription. Non-2xx responses make the transport redeliver;
// terminal outcomes are acked.
func jobsPubSubHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var msg PubSubMessage
		logger := config.GetLogger()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(logger, "server.go", "jobsPubSubHandler", "io.ReadAll", nil, err)
			// Malformed request body: ack/drop to avoid infinite retries.
			c.Status(http.StatusNoContent)
			return
		}

		// byte slice unmarshalling handles base64 decoding.
		if err := json.Unmarshal(body, &msg); err != nil {
			config.LogError(logger, "server.go", "jobsPubSubHandler", "Unmarshal body", body, err)
			c.Status(http.StatusNoContent)
			return
		}

		jobMsg, err := workflow.DecodeJobMessage(msg.Message.Data)
		if err != nil {
			config.LogError(logger, "server.go", "jobsPubSubHandler", "Decode job message", msg.Message.Data, err)
			// Poisoned message: ack/drop.
			c.Status(http.StatusNoContent)
			return
		}

		correlationId := jobMsg.CorrelationId
		if correlationId == "" {
			correlationId = msg.Message.ID
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		ctx = utils.SetUserNameInContext(ctx, "System")
		ctx, span := tracer.Start(ctx, "jobs.run")
		defer span.End()

		retry, err := workflow.RunJob(ctx, jobMsg.JobId)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"field":          "jobsPubSubHandler",
				"job_id":         jobMsg.JobId,
				"message_id":     msg.Message.ID,
				"correlation_id": correlationId,
				"retry":          retry,
			}).Error("job processing failed: " + err.Error())
			if retry {
				c.Status(http.StatusInternalServerError)
				return
			}
		}

		c.Status(http.StatusNoContent)
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func registerRoutes(r *gin.Engine) {
	r.POST("/auth/login", loginHandler)
	r.GET("/auth/me", middlewares.RequireSession(), meHandler)

	admin := r.Group("/users", middlewares.RequireSession(), middlewares.RequireAdmin())
	{
		admin.GET("", listUsersHandler)
		admin.POST("", createUserHandler)
		admin.PUT("/:id", updateUserHandler)
		admin.DELETE("/:id", deleteUserHandler)
	}

	api := r.Group("", middlewares.RequireSession())
	{
		api.GET("/agencies", listAgenciesHandler)
		api.POST("/agencies", createAgencyHandler)
		api.GET("/agencies/:id", getAgencyHandler)
		api.PUT("/agencies/:id", updateAgencyHandler)
		api.DELETE("/agencies/:id", deleteAgencyHandler)
		api.PATCH("/agencies/:id/active", toggleAgencyHandler)
		api.GET("/agencies/:id/price-tables", agencyPriceTablesHandler)
		api.POST("/price-tables", createPriceTableHandler)
		api.PUT("/price-tables/:id", updatePriceTableHandler)
		api.DELETE("/price-tables/:id", deletePriceTableHandler)

		api.GET("/inspectors", listInspectorsHandler)
		api.POST("/inspectors", createInspectorHandler)
		api.GET("/inspectors/:id", getInspectorHandler)
		api.PUT("/inspectors/:id", updateInspectorHandler)
		api.DELETE("/inspectors/:id", deleteInspectorHandler)
		api.PATCH("/inspectors/:id/active", toggleInspectorHandler)
		api.GET("/inspectors/:id/payout-tables", inspectorPayoutTablesHandler)
		api.POST("/payout-tables", createPayoutTableHandler)
		api.PUT("/payout-tables/:id", updatePayoutTableHandler)
		api.DELETE("/payout-tables/:id", deletePayoutTableHandler)

		api.GET("/service-types", listServiceTypesHandler)
		api.POST("/service-types", createServiceTypeHandler)
		api.PUT("/service-types/:id", updateServiceTypeHandler)
		api.DELETE("/service-types/:id", deleteServiceTypeHandler)

		api.GET("/area-bands", listAreaBandsHandler)
		api.POST("/area-bands", createAreaBandHandler)
		api.PUT("/area-bands/:id", updateAreaBandHandler)
		api.DELETE("/area-bands/:id", deleteAreaBandHandler)

		api.GET("/closures", listClosuresHandler)
		api.POST("/closures", createClosureHandler)
		api.GET("/closures/:id", getClosureHandler)
		api.PATCH("/closures/:id/status", updateClosureStatusHandler)
		api.DELETE("/closures/:id", deleteClosureHandler)
		api.GET("/closures/:id/summary", closureSummaryHandler)
		api.GET("/closures/:id/inspections", closureInspectionsHandler)
		api.POST("/closures/:id/import", importClosureHandler)
		api.POST("/closures/:id/calculate", calculateClosureHandler)
		api.GET("/closures/:id/export/receivables", exportClosureHandler(workflow.ExportReceivables, "contas-receber"))
		api.GET("/closures/:id/export/payables", exportClosureHandler(workflow.ExportPayables, "contas-pagar"))

		api.GET("/inspections/:id", getInspectionHandler)
		api.PATCH("/inspections/:id", updateInspectionHandler)
		api.POST("/inspections/:id/recalculate", recalculateInspectionHandler)

		api.GET("/jobs/:id", getJobHandler)
	}

	r.POST("/pubsub", jobsPubSubHandler())
	r.NoRoute(customNotFoundHandler)
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.SessionMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerRoutes(r)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Make sure the jobs topic exists before the first enqueue. Skipped when
	// no project is configured (local development without Pub/Sub).
	if os.Getenv("PUBSUB_PROJECT_ID") != "" || os.Getenv("GOOGLE_CLOUD_PROJECT") != "" || os.Getenv("GCP_PROJECT") != "" {
		pubsubCtx, cancelPubSub := context.WithTimeout(context.Background(), 30*time.Second)
		client, err := config.GetPubSubClient(pubsubCtx)
		if err == nil {
			_, err = config.CreateTopicIfNotExists(client, workflow.JobTopicName())
		}
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "pubsub"}).Warn("could not ensure jobs topic: " + err.Error())
		}
		cancelPubSub()
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	// Get the IP address or user identifier from the request.
	key := c.ClientIP()

	// Check if the key exists in Redis.
	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	// If the key exists, get the current count.
	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the count exceeds the limit, return an error response.
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
