package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/domain/repositories"
	loopforgeerrors "github.com/studiobgc/loopforge/internal/errors"
	"github.com/studiobgc/loopforge/internal/jobs"
	"github.com/studiobgc/loopforge/internal/storage"
	"github.com/studiobgc/loopforge/internal/transport/ws"
	"github.com/studiobgc/loopforge/internal/triggerengine"
)

// Deps collects everything a handler needs to exercise the core's
// contract. Routes are a thin edge: they validate input, call into the
// domain, and translate the result to JSON — no business logic lives
// here.
type Deps struct {
	Logger    *zap.Logger
	DB        *sql.DB
	Storage   *storage.Storage
	Orch      *jobs.Orchestrator
	Sessions  repositories.SessionRepository
	Jobs      repositories.JobRepository
	Banks     repositories.SliceBankRepository
	Sequences repositories.TriggerSequenceRepository
	Moments   repositories.MomentRepository
	Hub       *ws.SessionHub
	Sequencer *ws.SequencerHandler
	Metrics   http.Handler
}

// NewRouter builds the thin HTTP/WS edge described in §6: health and
// readiness probes, session creation, job submission and polling, slice
// bank listing, and trigger sequence generation — just enough surface to
// drive the Job Orchestrator, Slice Engine and Trigger Engine from a real
// request. The rest of the contract (auth, embeddings, grid search) is
// externally maintained.
func NewRouter(d *Deps) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(d.Logger), Recovery(d.Logger), CORS())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/readyz", func(c *gin.Context) { handleReady(c, d) })
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	api := r.Group("/api/v1")
	{
		api.POST("/sessions", func(c *gin.Context) { handleCreateSession(c, d) })
		api.GET("/sessions/:id", func(c *gin.Context) { handleGetSession(c, d) })

		api.POST("/sessions/:id/jobs", func(c *gin.Context) { handleSubmitJob(c, d) })
		api.GET("/jobs/:id", func(c *gin.Context) { handleGetJob(c, d) })

		api.GET("/sessions/:id/slice-banks", func(c *gin.Context) { handleListSliceBanks(c, d) })
		api.GET("/slice-banks/:id", func(c *gin.Context) { handleGetSliceBank(c, d) })

		api.POST("/slice-banks/:id/sequences", func(c *gin.Context) { handleGenerateSequence(c, d) })

		api.GET("/sessions/:id/moments", func(c *gin.Context) { handleListMoments(c, d) })
	}

	r.GET("/ws/:sessionID", func(c *gin.Context) {
		d.Hub.HandleSession(c, c.Param("sessionID"))
	})
	r.GET("/ws/sequencer/:sequenceID", func(c *gin.Context) {
		seq, err := d.Sequences.GetByID(c.Request.Context(), c.Param("sequenceID"))
		if err != nil {
			writeError(c, err)
			return
		}
		if seq == nil {
			writeError(c, loopforgeerrors.NotFound("trigger_sequence", c.Param("sequenceID")))
			return
		}
		d.Sequencer.HandleSequence(c, seq)
	})

	return r
}

func handleReady(c *gin.Context, d *Deps) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := d.DB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

type createSessionRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// handleCreateSession registers a Session row; the caller uploads the
// source file separately via the storage layer (out of this thin edge's
// scope — the externally maintained surface owns multipart upload).
func handleCreateSession(c *gin.Context, d *Deps) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := &entities.Session{
		ID:             uuid.New().String(),
		SourceFilename: req.Filename,
		CreatedAt:      time.Now(),
	}
	if err := d.Sessions.Create(c.Request.Context(), session); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func handleGetSession(c *gin.Context, d *Deps) {
	session, err := d.Sessions.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if session == nil {
		writeError(c, loopforgeerrors.NotFound("session", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, session)
}

type submitJobRequest struct {
	Type      entities.JobType       `json:"type" binding:"required"`
	InputPath string                 `json:"input_path" binding:"required"`
	Config    map[string]interface{} `json:"config"`
}

// handleSubmitJob enqueues a job row; the Orchestrator's own poll loop
// claims and dispatches it, it is not run inline on the request
// goroutine.
func handleSubmitJob(c *gin.Context, d *Deps) {
	var req submitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := &entities.Job{
		ID:          uuid.New().String(),
		SessionID:   c.Param("id"),
		Type:        req.Type,
		Status:      entities.JobStatusPending,
		InputPath:   req.InputPath,
		Config:      req.Config,
		OutputPaths: map[string]string{},
		MaxRetries:  3,
		CreatedAt:   time.Now(),
	}
	if err := d.Jobs.Create(c.Request.Context(), job); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func handleGetJob(c *gin.Context, d *Deps) {
	job, err := d.Jobs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if job == nil {
		writeError(c, loopforgeerrors.NotFound("job", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, job)
}

func handleListSliceBanks(c *gin.Context, d *Deps) {
	banks, err := d.Banks.ListBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, banks)
}

func handleGetSliceBank(c *gin.Context, d *Deps) {
	bank, err := d.Banks.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if bank == nil {
		writeError(c, loopforgeerrors.NotFound("slice_bank", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, bank)
}

type generateSequenceRequest struct {
	SourceType   string                 `json:"source_type" binding:"required"`
	SourceConfig map[string]interface{} `json:"source_config"`
	Mode         string                 `json:"mode" binding:"required"`
	Rules        []entities.TriggerRule `json:"rules"`
	Seed         int64                  `json:"seed"`
	DurationBeats float64               `json:"duration_beats" binding:"required"`
	BPM          float64                `json:"bpm" binding:"required"`
}

// handleGenerateSequence runs the Trigger Engine synchronously: sequence
// generation is cheap relative to the DSP jobs the Orchestrator owns, so
// it doesn't need a job row of its own.
func handleGenerateSequence(c *gin.Context, d *Deps) {
	var req generateSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bank, err := d.Banks.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if bank == nil {
		writeError(c, loopforgeerrors.NotFound("slice_bank", c.Param("id")))
		return
	}

	mode, ok := triggerengine.ParseMode(req.Mode)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized mode", "mode": req.Mode})
		return
	}

	engine, sourceOK, err := triggerengine.New(req.SourceType, triggerengine.Config(req.SourceConfig), mode, req.Rules, req.Seed)
	if err != nil {
		writeError(c, err)
		return
	}
	if !sourceOK {
		d.Logger.Warn("unrecognized trigger source type, falling back to grid", zap.String("source_type", req.SourceType))
	}

	seq, err := engine.Generate(bank, req.DurationBeats, req.BPM)
	if err != nil {
		writeError(c, err)
		return
	}
	seq.ID = uuid.New().String()
	seq.SliceBankID = bank.ID

	if err := d.Sequences.Create(c.Request.Context(), seq); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, seq)
}

func handleListMoments(c *gin.Context, d *Deps) {
	moments, err := d.Moments.ListBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, moments)
}
