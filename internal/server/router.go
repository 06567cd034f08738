package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loykin/clash-service/internal/supervisor"
)

// Controller is the supervisor surface the control plane drives.
type Controller interface {
	Version() supervisor.VersionInfo
	IsHealthy() bool
	GetClash() (supervisor.CoreConfig, error)
	StartClash(cfg supervisor.CoreConfig) error
	StopClash() error
}

// Router provides the control-plane handlers.
// Endpoints:
//
//	GET  {basePath}/version
//	GET  {basePath}/is_healthy
//	GET  {basePath}/get_clash
//	POST {basePath}/start_clash   body: CoreConfig JSON
//	POST {basePath}/stop_clash
//	POST {basePath}/stop_service
//
// Every reply, including unknown routes and recovered panics, is a Response envelope.
type Router struct {
	ctl      Controller
	shutdown func()
	basePath string
	logger   *slog.Logger
}

// NewRouter constructs a Router. shutdown is invoked after /stop_service has
// replied; it must not block.
func NewRouter(ctl Controller, shutdown func(), basePath string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if shutdown == nil {
		shutdown = func() {}
	}
	return &Router{ctl: ctl, shutdown: shutdown, basePath: sanitizeBase(basePath), logger: logger}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.HandleMethodNotAllowed = true
	g.Use(gin.CustomRecovery(func(c *gin.Context, rec any) {
		r.logger.Error("handler panic", "path", c.Request.URL.Path, "panic", rec)
		writeErr(c, http.StatusInternalServerError, fmt.Errorf("internal error: %v", rec))
		c.Abort()
	}))
	g.NoRoute(func(c *gin.Context) {
		writeErr(c, http.StatusNotFound, fmt.Errorf("no route for %s %s", c.Request.Method, c.Request.URL.Path))
	})
	g.NoMethod(func(c *gin.Context) {
		writeErr(c, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed for %s", c.Request.Method, c.Request.URL.Path))
	})

	group := g.Group(r.basePath)
	group.GET("/version", r.handleVersion)
	group.GET("/is_healthy", r.handleIsHealthy)
	group.GET("/get_clash", r.handleGetClash)
	group.POST("/start_clash", r.handleStartClash)
	group.POST("/stop_clash", r.handleStopClash)
	group.POST("/stop_service", r.handleStopService)
	return g
}

// --- Handlers ---

// startRequest mirrors supervisor.CoreConfig with the required fields enforced.
type startRequest struct {
	CoreType   string `json:"core_type"`
	BinPath    string `json:"bin_path" binding:"required"`
	ConfigDir  string `json:"config_dir" binding:"required"`
	ConfigFile string `json:"config_file" binding:"required"`
	LogFile    string `json:"log_file" binding:"required"`
}

func (r *Router) handleVersion(c *gin.Context) {
	writeOK(c, r.ctl.Version())
}

func (r *Router) handleIsHealthy(c *gin.Context) {
	writeOK(c, r.ctl.IsHealthy())
}

func (r *Router) handleGetClash(c *gin.Context) {
	cfg, err := r.ctl.GetClash()
	if err != nil {
		writeErr(c, http.StatusOK, err)
		return
	}
	writeOK(c, cfg)
}

func (r *Router) handleStartClash(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, http.StatusBadRequest, errors.New("invalid JSON: "+err.Error()))
		return
	}
	cfg := supervisor.CoreConfig(req)
	r.logger.Info("start requested", "bin_path", cfg.BinPath, "config_file", cfg.ConfigFile)
	if err := r.ctl.StartClash(cfg); err != nil {
		writeErr(c, http.StatusOK, err)
		return
	}
	writeOK(c, nil)
}

func (r *Router) handleStopClash(c *gin.Context) {
	if err := r.ctl.StopClash(); err != nil {
		writeErr(c, http.StatusOK, err)
		return
	}
	writeOK(c, nil)
}

func (r *Router) handleStopService(c *gin.Context) {
	r.logger.Info("service stop requested")
	writeOK(c, nil)
	c.Writer.Flush()
	r.shutdown()
}
