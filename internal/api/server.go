// Package api exposes the game over a small JSON HTTP API
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hashquest/internal/engine"
	"hashquest/internal/game"
	"hashquest/internal/gameerr"
	"hashquest/internal/ledger"
	"hashquest/internal/logging"
)

// MaxSeriesBuckets bounds the chart series a client may request
const MaxSeriesBuckets = 240

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Engine string `json:"engine"`
	Oracle string `json:"oracle"`
	Uptime string `json:"uptime"`
}

// TickRateRequest is the body of POST /tick-rate
type TickRateRequest struct {
	Rate float64 `json:"rate"`
}

// TickRateResponse reports the applied, clamped rate
type TickRateResponse struct {
	Rate float64 `json:"rate"`
}

// SaveData carries an exported save string
type SaveData struct {
	Data string `json:"data"`
}

// SummaryResponse is returned by GET /summary
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// PurchaseResponse is returned by a successful purchase
type PurchaseResponse struct {
	Upgrade ledger.Upgrade   `json:"upgrade"`
	State   ledger.GameState `json:"state"`
}

// Server routes HTTP requests to a Game
type Server struct {
	game      *game.Game
	log       *logging.Logger
	startTime time.Time
}

// NewServer creates a server for g
func NewServer(g *game.Game, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{game: g, log: log, startTime: time.Now()}
}

// Router builds the gin engine with every route under /api/v1
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1")
	{
		// Read-only views
		api.GET("/health", s.handleHealth)
		api.GET("/state", s.handleState)
		api.GET("/upgrades", s.handleUpgrades)
		api.GET("/summary", s.handleSummary)

		// Save export / import
		api.GET("/save", s.handleExport)
		api.POST("/save", s.handleImport)

		// Session control
		api.POST("/start", s.handleStart)
		api.POST("/stop", s.handleStop)
		api.POST("/pause", s.handlePause)
		api.POST("/resume", s.handleResume)
		api.POST("/tick-rate", s.handleTickRate)

		// Progression
		api.POST("/upgrades/:id/purchase", s.handlePurchase)
		api.POST("/reset", s.handleReset)
	}
	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	snap := s.game.Snapshot(0)
	status := "healthy"
	if snap.Engine.LastError != "" || snap.SaveError != "" {
		status = "degraded"
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status: status,
		Engine: snap.Engine.State.String(),
		Oracle: snap.Engine.Oracle,
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleState(c *gin.Context) {
	buckets := 0
	if raw := c.Query("series"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > MaxSeriesBuckets {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "series must be between 0 and " + strconv.Itoa(MaxSeriesBuckets)})
			return
		}
		buckets = n
	}
	c.JSON(http.StatusOK, s.game.Snapshot(buckets))
}

func (s *Server) handleUpgrades(c *gin.Context) {
	c.JSON(http.StatusOK, s.game.Upgrades())
}

func (s *Server) handleSummary(c *gin.Context) {
	c.JSON(http.StatusOK, SummaryResponse{Summary: s.game.Summary()})
}

func (s *Server) handleExport(c *gin.Context) {
	data, err := s.game.ExportSave()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SaveData{Data: data})
}

func (s *Server) handleImport(c *gin.Context) {
	var req SaveData
	if err := c.ShouldBindJSON(&req); err != nil || req.Data == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	state, err := s.game.ImportSave(c.Request.Context(), req.Data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleStart(c *gin.Context) {
	c.JSON(http.StatusOK, s.game.Start())
}

func (s *Server) handleStop(c *gin.Context) {
	s.respondStatus(c)(s.game.Stop())
}

func (s *Server) handlePause(c *gin.Context) {
	s.respondStatus(c)(s.game.Pause())
}

func (s *Server) handleResume(c *gin.Context) {
	c.JSON(http.StatusOK, s.game.Resume())
}

// respondStatus reports the engine status; a failed save is logged but the
// command itself succeeded
func (s *Server) respondStatus(c *gin.Context) func(engine.Status, error) {
	return func(status engine.Status, err error) {
		if err != nil {
			s.log.Warn("%s %s: %v", c.Request.Method, c.FullPath(), err)
		}
		c.JSON(http.StatusOK, status)
	}
}

func (s *Server) handleTickRate(c *gin.Context) {
	var req TickRateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Rate <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "rate must be a positive number"})
		return
	}
	c.JSON(http.StatusOK, TickRateResponse{Rate: s.game.SetTickRate(req.Rate)})
}

func (s *Server) handlePurchase(c *gin.Context) {
	u, err := s.game.PurchaseUpgrade(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, PurchaseResponse{Upgrade: u, State: s.game.Snapshot(0).State})
}

func (s *Server) handleReset(c *gin.Context) {
	state, err := s.game.ResetGame(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// fail maps domain errors onto HTTP statuses
func (s *Server) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	var ge *gameerr.GameError
	if errors.As(err, &ge) {
		resp = ErrorResponse{Error: ge.Message, Code: ge.Code, Details: ge.Details}
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, resp)
}

// StatusFor returns the HTTP status for a domain error
func StatusFor(err error) int {
	switch gameerr.CodeOf(err) {
	case gameerr.CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case gameerr.CodeAlreadyUnlocked:
		return http.StatusConflict
	case gameerr.CodeUnknownUpgrade:
		return http.StatusNotFound
	case gameerr.CodeUnsupportedSchemaVersion, gameerr.CodeInvalidSave:
		return http.StatusBadRequest
	case gameerr.CodeOracleUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
