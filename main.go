package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/veridoc/veridoc/handlers"
	"github.com/veridoc/veridoc/internal/audit"
	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/internal/database"
	"github.com/veridoc/veridoc/internal/doctype"
	"github.com/veridoc/veridoc/internal/document/repository"
	"github.com/veridoc/veridoc/internal/document/service"
	"github.com/veridoc/veridoc/internal/notify"
	"github.com/veridoc/veridoc/internal/oidc"
	"github.com/veridoc/veridoc/internal/storage"
	"github.com/veridoc/veridoc/internal/tokens"
	"github.com/veridoc/veridoc/pkg/logger"
	"github.com/veridoc/veridoc/pkg/metrics"
	"github.com/veridoc/veridoc/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging first (LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v oidc=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Auth.OIDCIssuer != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	ctx := context.Background()

	// Redis early: the rate limiter and the notification outbox both use it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// MongoDB-backed persistence; memory fallbacks keep the service usable
	// for local development and integration tests without a database.
	var (
		mongoClient *mongo.Client
		typeRepo    doctype.Repository    = doctype.NewMemoryRepository()
		docRepo     repository.Repository = repository.NewMemoryRepository()
		recorder    audit.Recorder        = audit.NewMemoryRecorder()
	)
	if cfg.MongoDB.URI != "" {
		// retry with backoff to tolerate startup races against the database
		const maxAttempts = 5
		backoff := time.Second
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			mongoClient, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts, using in-memory stores: %v", maxAttempts, errConn)
			mongoClient = nil
		} else {
			defer func() { _ = mongoClient.Disconnect(ctx) }()
			db := mongoClient.Database(cfg.MongoDB.Database)
			typeRepo = doctype.NewMongoRepository(db.Collection(database.ColDocumentTypes))
			docRepo = repository.NewMongoRepository(db.Collection(database.ColDocuments), db.Collection(database.ColApprovers))
			recorder = audit.NewMongoRecorder(db.Collection(database.ColAuditLog))
			logger.Infof("using MongoDB persistence: %s", cfg.MongoDB.Database)
		}
	} else {
		logger.Warnf("MONGODB_URI not set, using in-memory stores (state is lost on restart)")
	}

	// notifications ride the Redis outbox when Redis is up
	var notifier notify.Notifier = notify.NopNotifier{}
	if redisClient != nil {
		notifier = notify.NewRedisNotifier(redisClient, notify.DefaultOutboxKey)
	}

	typesSvc := doctype.NewService(typeRepo)
	docSvc := service.NewService(docRepo, typesSvc, recorder, notifier)

	// attachment store is optional; without MINIO_ENDPOINT the endpoints
	// answer 503
	if minioCfg := storage.LoadMinIOConfig(); minioCfg.Endpoint != "" {
		store, err := storage.NewAttachmentStore(minioCfg)
		if err != nil {
			logger.Warnf("attachment store unavailable: %v", err)
		} else {
			docSvc.ConfigureAttachments(store, nil)
			logger.Infof("attachment store ready: %s/%s", minioCfg.Endpoint, minioCfg.Bucket)
		}
	}

	// token verification: external OIDC provider when configured, otherwise
	// HS256 service tokens
	var verifier middleware.Verifier
	if cfg.Auth.OIDCIssuer != "" && cfg.Auth.OIDCClientID != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil && cfg.Auth.JWTSecret != "" {
		verifier = tokens.NewJWTVerifier(cfg.Auth.JWTSecret)
	}
	if verifier == nil {
		if strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
			logger.Warnf("enabling insecure token verifier (integration mode)")
			verifier = oidc.NewInsecureVerifier()
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when the configured dependencies actually answer
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		if cfg.MongoDB.URI != "" {
			ok := mongoClient != nil && mongoClient.Ping(c.Request.Context(), nil) == nil
			deps["mongodb"] = ok
			if !ok {
				ready = false
			}
		} else {
			deps["mongodb"] = true
		}
		if cfg.Redis.Host != "" {
			ok := redisClient != nil && redisClient.Ping(c.Request.Context()).Err() == nil
			deps["redis"] = ok
			if !ok {
				ready = false
			}
		} else {
			deps["redis"] = true
		}
		deps["auth"] = verifier != nil
		if verifier == nil {
			ready = false
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	handlers.RegisterSwagger(r)

	api := r.Group("/api/v1")
	if verifier != nil {
		api.Use(middleware.AuthMiddleware(verifier))
	} else {
		logger.Warnf("no token verifier configured; API requests will be refused")
		api.Use(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication is not configured"})
		})
	}
	handlers.NewDocTypeHandler(typesSvc).Register(api)
	handlers.NewDocumentHandler(docSvc).Register(api)

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting veridoc on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
