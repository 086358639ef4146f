package apihttp

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"sigrank/internal/pipeline"
	"sigrank/internal/report"
	"sigrank/internal/signal"
	"sigrank/internal/snapshot"
	"sigrank/internal/store"
	"sigrank/internal/store/model"

	"github.com/gin-gonic/gin"
)

const (
	defaultMinersLimit = 50
	defaultRunsLimit   = 20
	defaultMaxBody     = 64 << 20
)

type Router struct {
	state   *State
	engine  *pipeline.Engine
	store   store.Store
	maxBody int64
	now     func() time.Time
}

// NewRouter builds the /api routes. Ad-hoc runs use the engine without its miner-count guard so
// they never move the stored count.
func NewRouter(cfg ServerConfig) *Router {
	r := &Router{
		state:   cfg.State,
		store:   cfg.Store,
		maxBody: cfg.MaxBody,
		now:     time.Now,
	}
	if cfg.Engine != nil {
		r.engine = cfg.Engine.WithoutGuard()
	}
	if r.maxBody <= 0 {
		r.maxBody = defaultMaxBody
	}
	return r
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/signals", r.handleSignals)
	group.GET("/miners", r.handleMiners)
	group.GET("/report", r.handleReport)
	group.GET("/runs", r.handleRuns)
	group.POST("/rank", r.handleRank)
}

func (r *Router) latest(c *gin.Context) (pipeline.Result, bool) {
	res, ok := r.state.Get()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no ranking run has completed yet"})
	}
	return res, ok
}

func (r *Router) handleSignals(c *gin.Context) {
	res, ok := r.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":  res.RunID,
		"as_of":   res.AsOf,
		"depths":  res.Depths,
		"signals": res.Signals,
	})
}

func (r *Router) handleMiners(c *gin.Context) {
	res, ok := r.latest(c)
	if !ok {
		return
	}
	limit, err := parseLimit(c.Query("limit"), defaultMinersLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	ranked := res.Ranked
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id": res.RunID,
		"as_of":  res.AsOf,
		"total":  len(res.Ranked),
		"miners": ranked,
	})
}

func (r *Router) handleReport(c *gin.Context) {
	res, ok := r.latest(c)
	if !ok {
		return
	}
	html, err := report.RenderHTML(res)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

type runView struct {
	RunID      string `json:"run_id"`
	AsOf       int64  `json:"as_of"`
	Status     string `json:"status"`
	Miners     int    `json:"miners"`
	Ranked     int    `json:"ranked"`
	Rejected   int    `json:"rejected"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func (r *Router) handleRuns(c *gin.Context) {
	if r.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is not enabled"})
		return
	}
	limit, err := parseLimit(c.Query("limit"), defaultRunsLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	var runs []model.RunModel
	err = store.WithTx(c.Request.Context(), r.store, func(uow store.UnitOfWork) error {
		list, err := uow.Runs().List(c.Request.Context(), limit)
		runs = list
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]runView, 0, len(runs))
	for _, run := range runs {
		out = append(out, runView{
			RunID:      run.RunID,
			AsOf:       run.AsOf,
			Status:     string(run.Status),
			Miners:     run.Miners,
			Ranked:     run.Ranked,
			Rejected:   run.Rejected,
			DurationMs: run.DurationMs,
			Error:      run.Error,
		})
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

// handleRank ranks the posted snapshot without touching the scheduled state.
func (r *Router) handleRank(c *gin.Context) {
	if r.engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ranking engine is not configured"})
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, r.maxBody))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	snap, err := snapshot.Parse(raw, r.now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := r.engine.Run(c.Request.Context(), snap)
	if err != nil {
		status := http.StatusInternalServerError
		var input *signal.InputError
		if errors.As(err, &input) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func parseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid limit")
	}
	if n == 0 {
		return def, nil
	}
	return n, nil
}
