package server

import (
	"fmt"
	"strings"
	"sync"

	"enrollment-observer/src/logger"
	"enrollment-observer/src/models"
	"enrollment-observer/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// ObserverServer
// -----------------------------------------------------------------------------

type ObserverServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine
	cache  *utils.SeriesCache

	// On-demand scan requests are forwarded to the main loop.
	scanTrigger chan<- struct{}

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MLatestScan
	register   chan *Client
	unregister chan *Client

	// Local cache of the last completed scan
	latestState *models.MLatestScan
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewObserverServer(cfg *models.MConfig, log *logger.Logger, cache *utils.SeriesCache, scanTrigger chan<- struct{}) *ObserverServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &ObserverServer{
		Config:      cfg,
		Logger:      log,
		engine:      gin.Default(),
		cache:       cache,
		scanTrigger: scanTrigger,
		clients:     make(map[*Client]struct{}),
		// Buffered so a burst of scan completions never blocks the scanner
		broadcast:  make(chan *models.MLatestScan, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latestState: &models.MLatestScan{
			Type:   "INITIAL",
			Alerts: make(map[string][]models.MAnomalyAlert),
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *ObserverServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/alerts", s.getAlerts)
	s.engine.GET("/api/series", s.getSeries)
	s.engine.POST("/api/scan", s.postScan)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *ObserverServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.runHub()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *ObserverServer) Stop() error {
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *ObserverServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":      "ok",
		"connections": connections,
		"latest_scan": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *ObserverServer) getConfig(c *gin.Context) {
	c.JSON(200, gin.H{
		"metric_name":                 s.Config.Detection.MetricName,
		"lookback_days":               s.Config.Detection.LookbackDays,
		"zscore_threshold":            s.Config.Detection.ZScoreThreshold,
		"rolling_window":              s.Config.Detection.RollingWindow,
		"rolling_deviation_threshold": s.Config.Detection.RollingDeviationThreshold,
	})
}

// -----------------------------------------------------------------------------

func (s *ObserverServer) getAlerts(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	state := c.Query("state")
	if state == "" {
		c.JSON(200, s.latestState)
		return
	}

	c.JSON(200, s.filterByStates([]string{state}))
}

// -----------------------------------------------------------------------------

func (s *ObserverServer) getSeries(c *gin.Context) {
	if s.cache == nil {
		c.JSON(404, gin.H{"error": "series cache disabled"})
		return
	}

	partition := models.MPartition{
		State:    c.Query("state"),
		District: c.Query("district"),
	}
	series := s.cache.GetSeries(partition)
	if series == nil {
		c.JSON(404, gin.H{"error": fmt.Sprintf("no cached series for %s", partition)})
		return
	}

	c.JSON(200, gin.H{
		"state":    partition.State,
		"district": partition.District,
		"points":   series,
	})
}

// -----------------------------------------------------------------------------

func (s *ObserverServer) postScan(c *gin.Context) {
	if s.scanTrigger == nil {
		c.JSON(503, gin.H{"accepted": false, "error": "scan trigger not wired"})
		return
	}

	select {
	case s.scanTrigger <- struct{}{}:
		c.JSON(202, gin.H{"accepted": true})
	default:
		// A scan is already pending
		c.JSON(202, gin.H{"accepted": false, "reason": "scan already queued"})
	}
}
