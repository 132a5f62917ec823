// Package api serves classification jobs and stored run results over
// HTTP. The pipeline itself is batch; this surface only schedules jobs
// and exposes their outputs.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"perturbscope/domain/core"
	"perturbscope/domain/mixscape"
	"perturbscope/ports"
)

// Server is the results API.
type Server struct {
	engine *gin.Engine
	jobs   *JobManager
	ledger ports.LedgerPort
	log    *zap.Logger
}

// NewServer builds the router. mode is the gin mode ("release" in
// production).
func NewServer(mode string, jobs *JobManager, ledger ports.LedgerPort, registry *prometheus.Registry, log *zap.Logger) *Server {
	gin.SetMode(mode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{engine: engine, jobs: jobs, ledger: ledger, log: log}

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/jobs", s.handleSubmitJob)
		v1.GET("/jobs/:id", s.handleGetJob)
		v1.GET("/runs", s.handleListRuns)
		v1.GET("/runs/:id", s.handleGetRun)
		v1.GET("/runs/:id/knockouts", s.handleGetKnockouts)
	}
	return s
}

// Handler exposes the router for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the given address until the listener fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

type submitJobRequest struct {
	DatasetDir string           `json:"dataset_dir" binding:"required"`
	Params     *mixscape.Params `json:"params"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSubmitJob(c *gin.Context) {
	var req submitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	params := mixscape.DefaultParams()
	if req.Params != nil {
		params = *req.Params
	}

	job, err := s.jobs.Submit(req.DatasetDir, params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, err := s.jobs.Get(core.JobID(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleListRuns(c *gin.Context) {
	datasetID := core.DatasetID(c.Query("dataset_id"))
	runs, err := s.ledger.ListRuns(c.Request.Context(), datasetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.ledger.GetRun(c.Request.Context(), core.RunID(c.Param("id")))
	if err != nil {
		s.renderLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleGetKnockouts(c *gin.Context) {
	run, err := s.ledger.GetRun(c.Request.Context(), core.RunID(c.Param("id")))
	if err != nil {
		s.renderLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "knockouts": run.Knockouts})
}

func (s *Server) renderLedgerError(c *gin.Context, err error) {
	if errors.Is(err, core.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.log.Error("ledger error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
