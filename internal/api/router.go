package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/FilingPulse/internal/scheduler"
	"github.com/LJTian/FilingPulse/internal/storage"
)

const authRealm = "FilingPulse"

// RunStore 运行历史查询
type RunStore interface {
	ListRuns(ctx context.Context, job string, limit int) ([]storage.Run, error)
	ListRecords(ctx context.Context, variant string, limit int) ([]storage.RecordRow, error)
}

// JobControl 任务状态与手动触发
type JobControl interface {
	Jobs() []scheduler.JobStatus
	Trigger(name string) error
}

type Server struct {
	store      RunStore
	jobs       JobControl
	defaultJob string
}

// NewServer store 可以为 nil（未配置 Postgres），此时历史接口返回 503
func NewServer(store RunStore, jobs JobControl, defaultJob string) *Server {
	return &Server{store: store, jobs: jobs, defaultJob: defaultJob}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/runs", s.listRuns)
		v1.POST("/runs", s.triggerRun)
		v1.GET("/records", s.listRecords)
		v1.GET("/jobs", s.listJobs)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listRuns(c *gin.Context) {
	if s.store == nil {
		storeUnavailable(c)
		return
	}
	items, err := s.store.ListRuns(c.Request.Context(), c.Query("job"), queryLimit(c))
	if err != nil {
		internalError(c)
		return
	}
	respondOK(c, items)
}

func (s *Server) listRecords(c *gin.Context) {
	if s.store == nil {
		storeUnavailable(c)
		return
	}
	items, err := s.store.ListRecords(c.Request.Context(), c.Query("variant"), queryLimit(c))
	if err != nil {
		internalError(c)
		return
	}
	respondOK(c, items)
}

func (s *Server) listJobs(c *gin.Context) {
	respondOK(c, s.jobs.Jobs())
}

// triggerRun 在后台启动一次运行，立即返回 202
func (s *Server) triggerRun(c *gin.Context) {
	name := c.DefaultQuery("job", s.defaultJob)
	err := s.jobs.Trigger(name)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{
			"code":    "ok",
			"message": "run started",
			"data":    gin.H{"job": name},
		})
	case errors.Is(err, scheduler.ErrJobRunning):
		c.JSON(http.StatusConflict, gin.H{
			"code":    "job_running",
			"message": err.Error(),
		})
	case errors.Is(err, scheduler.ErrUnknownJob):
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "job_not_found",
			"message": err.Error(),
		})
	default:
		internalError(c)
	}
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	return limit
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}

func storeUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"code":    "store_unavailable",
		"message": "run history store is not configured",
	})
}

// BasicAuthMiddleware 用单个账号保护运行历史和手动触发接口，/health 供探活使用不做认证
func BasicAuthMiddleware(user, pass string) gin.HandlerFunc {
	auth := gin.BasicAuthForRealm(gin.Accounts{user: pass}, authRealm)
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			return
		}
		auth(c)
	}
}
