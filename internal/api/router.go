package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/timmy/copyscale/internal/api/handler"
	"github.com/timmy/copyscale/internal/api/middleware"
	"github.com/timmy/copyscale/internal/logger"
	"github.com/timmy/copyscale/internal/metrics"
	"github.com/timmy/copyscale/internal/repository"
	"github.com/timmy/copyscale/internal/service"
)

// Services are the application components the HTTP surface exposes.
type Services struct {
	Analysis *service.AnalysisService
	Search   *service.SearchService
	Video    *service.VideoService
	Store    *repository.FingerprintStore
}

// RouterConfig holds HTTP-level settings.
type RouterConfig struct {
	Mode        string
	UploadDir   string
	MaxUploadMB int64
	DefaultTopK int
	CORS        middleware.CORSConfig
	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string
	Logger      *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc Services, cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	if cfg.MaxUploadMB > 0 {
		r.MaxMultipartMemory = cfg.MaxUploadMB << 20
	}

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.MetricsPath != "" {
		r.Use(metrics.Middleware())
		r.GET(cfg.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	healthHandler := handler.NewHealthHandler(svc.Store)
	analyzeHandler := handler.NewAnalyzeHandler(svc.Analysis, cfg.UploadDir)
	fingerprintHandler := handler.NewFingerprintHandler(svc.Store, cfg.UploadDir)
	searchHandler := handler.NewSearchHandler(svc.Search, cfg.DefaultTopK, cfg.UploadDir)
	videoHandler := handler.NewVideoHandler(svc.Video, cfg.UploadDir)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/analyze", analyzeHandler.Analyze)

		// Fingerprint registry
		v1.POST("/fingerprints", fingerprintHandler.Register)
		v1.GET("/fingerprints", fingerprintHandler.List)
		v1.DELETE("/fingerprints", fingerprintHandler.Clear)
		v1.DELETE("/fingerprints/:id", fingerprintHandler.Remove)
		v1.GET("/stats", fingerprintHandler.Stats)

		v1.POST("/search", searchHandler.Search)

		v1.POST("/video/reference", videoHandler.MatchReference)
		v1.POST("/video/scan", videoHandler.ScanStore)
	}

	return r
}
