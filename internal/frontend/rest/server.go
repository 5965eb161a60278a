// Package rest implements the REST Frontend Listener (§4.6): a gin server
// exposing /invoke, /invoke-async, /status/{id}, /health, /metrics and
// /admin/reload, grounded on the teacher's internal/ghost/server.go gin
// wiring style.
package rest

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/neo6systems/neo6/internal/auth"
	"github.com/neo6systems/neo6/internal/observability"
	"github.com/neo6systems/neo6/internal/router"
)

// Reloader is implemented by the app wiring layer to service
// POST /admin/reload without the REST package depending on config/loader
// internals directly.
type Reloader interface {
	ReloadAll() error
}

// Server wraps a *gin.Engine bound to the Router and the async invocation
// queue.
type Server struct {
	engine *gin.Engine
	router *router.Router
	async  *AsyncQueue
	reload Reloader
}

// New builds the REST listener's gin engine and registers every route. When
// validator is non-nil every route but /health and /metrics requires a
// "Bearer <token>" Authorization header accepted by validator.
func New(rt *router.Router, reload Reloader, validator auth.Validator) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(observability.RequestMetricsMiddleware())
	engine.Use(cors.Default())
	if validator != nil {
		engine.Use(bearerAuth(validator))
	}

	s := &Server{
		engine: engine,
		router: rt,
		async:  NewAsyncQueue(1024),
		reload: reload,
	}
	s.registerRoutes()
	return s
}

// bearerAuth rejects requests without a valid Authorization: Bearer <token>
// header, except for the health and metrics probes.
func bearerAuth(validator auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || validator.Validate(token) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "error_code": "UNAUTHORIZED", "message": "missing or invalid bearer token"})
			return
		}
		c.Next()
	}
}

// Handler exposes the underlying http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.POST("/invoke", s.handleInvoke)
	s.engine.POST("/invoke-async", s.handleInvokeAsync)
	s.engine.GET("/status/:id", s.handleStatus)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.POST("/admin/reload", s.handleAdminReload)
}

type invokeBody struct {
	TransactionID string         `json:"transaction_id"`
	Parameters    map[string]any `json:"parameters"`
	Options       router.Options `json:"options,omitempty"`
}

func (s *Server) handleInvoke(c *gin.Context) {
	var body invokeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error_code": "PARAMS_INVALID", "message": err.Error()})
		return
	}
	resp := s.router.Invoke(c.Request.Context(), router.Request{
		TransactionID: body.TransactionID,
		Parameters:    body.Parameters,
		Options:       body.Options,
		TraceID:       c.GetHeader("X-Trace-Id"),
	})
	c.JSON(statusForResponse(resp), resp)
}

func (s *Server) handleInvokeAsync(c *gin.Context) {
	var body invokeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error_code": "PARAMS_INVALID", "message": err.Error()})
		return
	}
	req := router.Request{TransactionID: body.TransactionID, Parameters: body.Parameters, Options: body.Options}
	id, ok := s.async.Enqueue(c.Request.Context(), s.router, req)
	if !ok {
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error_code": "BACKEND_UNAVAILABLE", "message": "async queue full"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

func (s *Server) handleStatus(c *gin.Context) {
	id := c.Param("id")
	state, resp, ok := s.async.Status(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "unknown async invocation id"})
		return
	}
	body := gin.H{"state": state}
	if state == StateDone {
		body["response"] = resp
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAdminReload(c *gin.Context) {
	if err := s.reload.ReloadAll(); err != nil {
		log.Error().Err(err).Msg("rest: admin reload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusForResponse(resp router.Response) int {
	if resp.Status == "success" {
		return http.StatusOK
	}
	switch resp.ErrorCode {
	case "TRANSACTION_UNKNOWN", "PARAMS_INVALID":
		return http.StatusBadRequest
	case "TIMEOUT":
		return http.StatusRequestTimeout
	case "BACKEND_UNAVAILABLE", "CIRCUIT_OPEN", "PROTOCOL_UNAVAILABLE":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
