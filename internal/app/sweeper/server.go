// server.go
// Асинхронный REST-слой: запрос перебора ставится в работу и сразу
// получает идентификатор; статус и отчёт забираются поллингом. Сам
// внутренний цикл перебора остаётся синхронным.
package sweeper

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sweep/internal/config"
)

// JobStatus — жизненный цикл задачи перебора.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job — одна асинхронная задача перебора.
type Job struct {
	ID         string     `json:"id"`
	Status     JobStatus  `json:"status"`
	Tickers    []string   `json:"tickers,omitempty"`
	Report     *Report    `json:"report,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Server — HTTP-поверхность поверх Runner.
type Server struct {
	cfg    *config.Config
	runner *Runner
	log    zerolog.Logger

	mu   sync.RWMutex
	jobs map[string]*Job
	seq  atomic.Int64
}

func NewServer(cfg *config.Config, runner *Runner, log zerolog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		runner: runner,
		log:    log,
		jobs:   make(map[string]*Job),
	}
}

// Router собирает маршруты API.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.POST("/sweeps", s.createSweep)
	api.GET("/sweeps/:id", s.getSweep)
	api.GET("/sweeps", s.listSweeps)

	return r
}

type createSweepRequest struct {
	Tickers []string `json:"tickers"`
}

// createSweep ставит перебор в работу и отвечает сразу: клиент
// поллит статус по идентификатору.
func (s *Server) createSweep(c *gin.Context) {
	var req createSweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tickers := req.Tickers
	if len(tickers) == 0 {
		tickers = s.cfg.Tickers
	}
	if len(tickers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no tickers configured or requested"})
		return
	}

	job := &Job{
		ID:        fmt.Sprintf("sweep-%d-%d", time.Now().Unix(), s.seq.Add(1)),
		Status:    JobPending,
		Tickers:   tickers,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go s.runJob(job)

	c.JSON(http.StatusAccepted, gin.H{"id": job.ID, "status": JobPending})
}

func (s *Server) runJob(job *Job) {
	s.setStatus(job.ID, JobRunning, nil, "")

	report, err := s.runner.Run(context.Background(), job.Tickers)
	if err != nil {
		s.log.Error().Err(err).Str("job", job.ID).Msg("sweep job failed")
		s.setStatus(job.ID, JobFailed, nil, err.Error())
		return
	}
	s.setStatus(job.ID, JobDone, report, "")
}

func (s *Server) setStatus(id string, status JobStatus, report *Report, errText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.Report = report
	job.Error = errText
	if status == JobDone || status == JobFailed {
		now := time.Now().UTC()
		job.FinishedAt = &now
	}
}

func (s *Server) getSweep(c *gin.Context) {
	s.mu.RLock()
	job, ok := s.jobs[c.Param("id")]
	var snapshot Job
	if ok {
		snapshot = *job
	}
	s.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown sweep id"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// listSweeps отдаёт статусы без тел отчётов.
func (s *Server) listSweeps(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]gin.H, 0, len(s.jobs))
	for _, job := range s.jobs {
		summaries = append(summaries, gin.H{
			"id":         job.ID,
			"status":     job.Status,
			"created_at": job.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sweeps": summaries})
}
