package httpapi

import (
	"time"

	"sales-orchestrator/internal/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Responder Responder
	Scorer    LeadScorer
	Simulator LoanSimulator
	Searcher  InventorySearcher
	Recorder  ReplyRecorder
	Checks    map[string]Check
	// RequestTimeout bounds each API call; zero leaves only the client deadline.
	RequestTimeout time.Duration
	Logger         logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	h := &Handlers{
		responder: cfg.Responder,
		scorer:    cfg.Scorer,
		simulator: cfg.Simulator,
		searcher:  cfg.Searcher,
		recorder:  cfg.Recorder,
		checks:    cfg.Checks,
		timeout:   cfg.RequestTimeout,
		logger:    cfg.Logger,
	}

	router.GET("/health", HealthCheck)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/conversations/respond", h.Respond)
		api.POST("/leads/score", h.ScoreLead)
		api.POST("/finance/simulate", h.SimulateLoan)
		api.GET("/inventory/search", h.SearchInventory)
	}

	return router
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		log.Debug("http request", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(started).Milliseconds(),
		})
	}
}
