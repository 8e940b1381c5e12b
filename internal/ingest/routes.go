package ingest

import (
	"context"
	"net/http"
	"time"

	_ "github.com/damoang/angple-bugreport/docs"
	"github.com/damoang/angple-bugreport/internal/middleware"
	"github.com/damoang/angple-bugreport/internal/ws"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterDeps collects what the HTTP surface is built from.
// Nil optional parts disable their routes or middleware.
type RouterDeps struct {
	Handler      *Handler
	Hub          *ws.Hub
	Verifier     middleware.TokenVerifier // nil이면 관리자 라우트 인증 없음 (로컬 개발)
	CookieName   string
	RateLimiter  *middleware.RateLimiter
	HTTPMetrics  *middleware.HTTPMetrics
	Gatherer     prometheus.Gatherer
	AllowOrigins []string
	Health       func(ctx context.Context) error
	Logger       zerolog.Logger
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:           24 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// NewRouter builds the ingestion server routes
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(corsConfig(d.AllowOrigins)))
	if d.HTTPMetrics != nil {
		router.Use(d.HTTPMetrics.Handler())
	}
	router.Use(middleware.RequestLogger(d.Logger))

	admin := []gin.HandlerFunc{}
	if d.Verifier != nil {
		router.Use(middleware.DamoangCookieAuth(d.Verifier, d.CookieName))
		admin = append(admin, middleware.RequireAdmin())
	}

	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "ok", "service": "angple-bugreport", "time": time.Now().Unix()}
		if d.Health != nil {
			if err := d.Health(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["error"] = err.Error()
			}
		}
		c.JSON(status, body)
	})
	// 클라이언트 연결 확인용
	router.HEAD("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	reports := router.Group("/api/v1/bug-reports")
	{
		create := []gin.HandlerFunc{}
		if d.RateLimiter != nil {
			create = append(create, d.RateLimiter.Handler())
		}
		reports.POST("", append(create, d.Handler.Create)...)

		reports.GET("", append(admin, d.Handler.List)...)
		reports.GET("/search", append(admin, d.Handler.Search)...)
		reports.GET("/:id", append(admin, d.Handler.Get)...)
	}

	if d.Hub != nil {
		router.GET("/ws/bug-reports", append(admin, ws.ServeWS(d.Hub, d.AllowOrigins, middleware.GetDamoangUserID))...)
	}
	return router
}
