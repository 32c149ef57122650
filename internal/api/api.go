package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/api/handlers"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Services struct {
	Predictions handlers.PredictionService
}

// RouterOptions configure ambient endpoints.
type RouterOptions struct {
	AllowedOrigins []string
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

func NewRouter(services *Services, opts RouterOptions) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	apiGroup := router.Group("/api/v1")

	if services != nil && services.Predictions != nil {
		h := handlers.NewPredictionHandler(services.Predictions)

		predictionGroup := apiGroup.Group("/predictions")
		{
			predictionGroup.POST("", h.PredictSnapshot)
			predictionGroup.POST("/batch", h.PredictBatch)
		}

		productGroup := apiGroup.Group("/products/:id")
		{
			productGroup.GET("/prediction", h.PredictProduct)
			productGroup.DELETE("/cache", h.InvalidateCache)
		}

		apiGroup.GET("/reports", h.ListReports)
		apiGroup.DELETE("/cache", h.InvalidateAllCaches)
	}

	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	cfg := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			cfg.AllowOrigins = nil
			cfg.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			cfg.AllowOrigins = normalizedOrigins
		}
	}
	return cfg
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
