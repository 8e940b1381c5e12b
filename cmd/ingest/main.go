package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/damoang/angple-bugreport/internal/config"
	"github.com/damoang/angple-bugreport/internal/database"
	"github.com/damoang/angple-bugreport/internal/identity"
	"github.com/damoang/angple-bugreport/internal/ingest"
	"github.com/damoang/angple-bugreport/internal/metrics"
	"github.com/damoang/angple-bugreport/internal/middleware"
	"github.com/damoang/angple-bugreport/internal/ws"
	pkgcache "github.com/damoang/angple-bugreport/pkg/cache"
	pkges "github.com/damoang/angple-bugreport/pkg/elasticsearch"
	pkglogger "github.com/damoang/angple-bugreport/pkg/logger"
	pkgredis "github.com/damoang/angple-bugreport/pkg/redis"
	pkgstorage "github.com/damoang/angple-bugreport/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Angple Bug Report API
// @version         1.0
// @description     앙플 클라이언트 버그 리포트 수집 서버
//
// @license.name    MIT
//
// @host            localhost:8090
// @BasePath        /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 관리자 damoang_jwt. 쿠키 대신 "Bearer {token}" 형식으로도 보낼 수 있다

func main() {
	if err := run(); err != nil {
		pkglogger.GetLogger().Fatal().Err(err).Msg("ingest server stopped")
	}
}

func run() error {
	dotenvFiles := config.LoadDotEnv(".")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env, "angple-bugreport-ingest")
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	config.LogResolved(cfg)
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// MySQL 연결 (필수)
	db, err := database.Open(cfg.Database, gormlogger.Warn)
	if err != nil {
		return err
	}
	defer database.Close(db) //nolint:errcheck
	repo := ingest.NewGormRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		pkglogger.Warn("bug_reports migration warning: %v", err)
	}

	// Redis 연결 (선택)
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = pkgredis.NewClient(ctx, pkgredis.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			pkglogger.Warn("Failed to connect to Redis: %v (continuing without Redis)", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	deps := ingest.ServiceDeps{
		Repo:    repo,
		Metrics: metrics.NewIngest(prometheus.DefaultRegisterer),
		Logger:  pkglogger.With("ingest"),
	}
	if redisClient != nil {
		deps.Cache = pkgcache.NewService(redisClient)
	}
	attachSinks(ctx, cfg, &deps)

	hub := ws.NewHub(redisClient, pkglogger.With("ws"))
	go hub.Run()
	defer hub.Stop()
	deps.Feed = hub

	var verifier middleware.TokenVerifier
	if cfg.JWT.DamoangSecret != "" {
		verifier = identity.NewJWTProvider(cfg.JWT.DamoangSecret, nil)
	} else {
		pkglogger.Warn("DAMOANG_JWT_SECRET not set: admin routes are not protected")
	}

	router := ingest.NewRouter(ingest.RouterDeps{
		Handler:    ingest.NewHandler(ingest.NewService(deps), cfg.Server.MaxBodyBytes),
		Hub:        hub,
		Verifier:   verifier,
		CookieName: cfg.JWT.CookieName,
		RateLimiter: middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			Requests: cfg.Server.RateLimit,
			Window:   cfg.Server.RateLimitWindow,
		}, pkglogger.With("ratelimit")),
		HTTPMetrics:  middleware.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Gatherer:     prometheus.DefaultGatherer,
		AllowOrigins: splitAndTrim(cfg.CORS.AllowOrigins, ","),
		Health: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		Logger: pkglogger.With("http"),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		pkglogger.Info("ingest server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	pkglogger.Info("shutting down ingest server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// attachSinks wires the optional stores: S3 screenshots, ClickHouse and Elasticsearch
func attachSinks(ctx context.Context, cfg *config.Config, deps *ingest.ServiceDeps) {
	if cfg.Storage.Enabled && cfg.Storage.Bucket != "" {
		s3Client, err := pkgstorage.NewS3Client(pkgstorage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			CDNURL:          cfg.Storage.CDNURL,
			BasePath:        cfg.Storage.BasePath,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
		})
		if err != nil {
			pkglogger.Warn("S3 storage init failed: %v (screenshots stay inline)", err)
		} else {
			deps.Screenshots = ingest.NewScreenshotStore(s3Client, cfg.Server.ScreenshotPrefix)
		}
	}

	if cfg.ClickHouse.Host != "" {
		conn, err := ingest.OpenClickHouse(ingest.ClickHouseConfig{
			Host:     cfg.ClickHouse.Host,
			Port:     cfg.ClickHouse.Port,
			Database: cfg.ClickHouse.Database,
			User:     cfg.ClickHouse.User,
			Password: cfg.ClickHouse.Password,
		})
		if err != nil {
			pkglogger.Warn("ClickHouse connection failed: %v (continuing without analytics)", err)
		} else {
			sink := ingest.NewClickHouseSink(conn, cfg.ClickHouse.Database)
			if err := sink.EnsureTable(ctx); err != nil {
				pkglogger.Warn("ClickHouse table setup failed: %v", err)
			}
			deps.Sinks = append(deps.Sinks, sink)
		}
	}

	if cfg.Search.Enabled && len(cfg.Search.Addresses) > 0 {
		esClient, err := pkges.NewClient(cfg.Search.Addresses, cfg.Search.Username, cfg.Search.Password)
		if err != nil {
			pkglogger.Warn("Elasticsearch connection failed: %v (continuing without search)", err)
			return
		}
		if err := esClient.CreateIndex(ctx, cfg.Search.Index, ingest.IndexMapping); err != nil {
			pkglogger.Warn("Elasticsearch index setup failed: %v", err)
		}
		deps.Sinks = append(deps.Sinks, ingest.NewSearchSink(esClient, cfg.Search.Index))
		deps.Search = esClient
		deps.SearchIndex = cfg.Search.Index
	}
}

func splitAndTrim(s, sep string) []string {
	var parts []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
