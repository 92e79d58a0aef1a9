package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pulseops/pulseops/backend/auth-core/handlers"
	"github.com/pulseops/pulseops/backend/auth-core/internal/actions"
	"github.com/pulseops/pulseops/backend/auth-core/internal/callback"
	"github.com/pulseops/pulseops/backend/auth-core/internal/config"
	"github.com/pulseops/pulseops/backend/auth-core/internal/database"
	"github.com/pulseops/pulseops/backend/auth-core/internal/documents"
	"github.com/pulseops/pulseops/backend/auth-core/internal/identity"
	"github.com/pulseops/pulseops/backend/auth-core/internal/oauthstate"
	"github.com/pulseops/pulseops/backend/auth-core/internal/profiles"
	"github.com/pulseops/pulseops/backend/auth-core/internal/reconcile"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/logger"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/metrics"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/middleware"
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
	logger.Infof("config loaded: identity=%v mongo=%v redis=%v minio=%v",
		cfg.Identity.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS middleware for dev/test: the SPA talks to this service
	// from another origin. Production should use a stricter policy.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	ctx := context.Background()

	// Redis for OAuth state nonces and the distributed rate limiter
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// MongoDB for profiles and document metadata; retry to tolerate startup races
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
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
			logger.Fatalf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
		}
		defer func() { _ = mongoClient.Disconnect(ctx) }()
	} else {
		logger.Fatalf("MONGODB_URI is required: the profile store backs the provisioning contract")
	}

	db := mongoClient.Database(cfg.MongoDB.Database)
	profileStore := profiles.NewMongoStore(db)
	if err := profileStore.EnsureIndexes(ctx); err != nil {
		// the unique index is the duplicate suppressor; refuse to run without it
		logger.Fatalf("failed to ensure profile indexes: %v", err)
	}
	provisioner := profiles.NewProvisioner(profileStore)

	// identity provider client + reconciler
	client := identity.NewHTTPClient(cfg.Identity.URL, cfg.Identity.APIKey, cfg.Identity.Timeout)
	rec := reconcile.New(client, provisioner)
	defer rec.Close()

	// verifier for protected API routes
	var verifier middleware.Verifier
	if cfg.Identity.Issuer != "" {
		ver, err := identity.NewVerifier(ctx, cfg.Identity.Issuer, cfg.Identity.APIKey)
		if err != nil {
			logger.Warnf("failed to initialize token verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil {
		logger.Warn("no IDENTITY_ISSUER configured; accepting provider tokens without signature verification")
		verifier = identity.NewUnverifiedVerifier()
	}

	// OAuth state store: Redis when available, in-memory otherwise
	var states oauthstate.Store
	if redisClient != nil {
		states = oauthstate.NewRedisStore(redisClient, "", 5*time.Minute)
	} else {
		states = oauthstate.NewMemoryStore(5 * time.Minute)
	}

	actionsSvc := actions.NewService(client, rec, states, cfg.CallbackURL())
	cbMachine := callback.NewHandler(client, provisioner)

	// document storage (optional) + metadata
	var docStorage *documents.ObjectStorage
	if cfg.MinIO.Endpoint != "" {
		docStorage, err = documents.NewObjectStorage(&cfg.MinIO)
		if err != nil {
			logger.Warnf("document storage unavailable: %v", err)
			docStorage = nil
		}
	}
	docRepo := documents.NewMongoRepository(db.Collection("clinician_documents"))
	docSvc := documents.NewService(docRepo)

	// basic health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{
			"identity": cfg.Identity.URL != "",
			"profiles": true, // startup fails without Mongo, so reaching here means it's up
			"redis":    redisClient != nil || cfg.Redis.Host == "",
			"storage":  docStorage != nil || cfg.MinIO.Endpoint == "",
		}
		for _, ok := range deps {
			if !ok {
				ready = false
			}
		}
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	// Prometheus metrics
	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// register handlers
	root := r.Group("/")
	handlers.NewAuthHandler(actionsSvc, rec).Register(root)
	handlers.NewCallbackHandler(cbMachine, actionsSvc, cfg.Server.SiteURL).Register(root)

	api := r.Group("/api/v1")
	handlers.NewDocumentsHandler(docSvc, docRepo, docStorage).Register(api, middleware.AuthMiddleware(verifier))

	// restore any existing session before serving; the reconciler clears its
	// loading flag regardless of outcome
	rec.OnInitialLoad(ctx)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logger.Infof("auth-core listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
