package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/adapters/postgres"
	"github.com/studiobgc/loopforge/internal/cache"
	"github.com/studiobgc/loopforge/internal/config"
	"github.com/studiobgc/loopforge/internal/domain/entities"
	"github.com/studiobgc/loopforge/internal/eventbus"
	"github.com/studiobgc/loopforge/internal/jobs"
	"github.com/studiobgc/loopforge/internal/jobs/processors"
	"github.com/studiobgc/loopforge/internal/moments"
	"github.com/studiobgc/loopforge/internal/sliceengine"
	"github.com/studiobgc/loopforge/internal/storage"
	loopforgehttp "github.com/studiobgc/loopforge/internal/transport/http"
	"github.com/studiobgc/loopforge/internal/transport/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment")
	}

	cfg := config.New()

	var logger *zap.Logger
	var err error
	if cfg.Server.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, logger); err != nil {
		logger.Fatal("schema migration failed", zap.Error(err))
	}

	store, err := storage.New(cfg.Storage.Root, logger)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}

	bus := eventbus.New(logger)
	bridge, err := eventbus.Connect(cfg.NATS, bus, logger)
	if err != nil {
		logger.Fatal("eventbus bridge connect failed", zap.Error(err))
	}
	if bridge != nil {
		defer bridge.Close()
	}

	redisClient := cache.NewRedisClient(cfg.Redis)
	defer redisClient.Close()
	sliceCache := cache.New(redisClient, cfg.Cache.EnableLevel1, cfg.Cache.EnableLevel2, cfg.Cache.SliceBankTTL, logger)
	_ = sliceCache // wired into the Slice Engine once a cached-read path lands there

	sessions := postgres.NewSessionRepository(db, logger)
	jobRepo := postgres.NewJobRepository(db, logger)
	assets := postgres.NewAssetRepository(db, logger)
	banks := postgres.NewSliceBankRepository(db, logger)
	sequences := postgres.NewTriggerSequenceRepository(db, logger)
	momentRepo := postgres.NewMomentRepository(db, logger)

	sliceEngine := sliceengine.New(cfg.Engine.DefaultFadeMs)
	momentDetector := moments.New()

	metricsRegistry := prometheus.NewRegistry()
	orch := jobs.New(jobRepo, bus, bridge, cfg.Queue, logger).WithMetrics(jobs.NewMetrics(metricsRegistry))
	orch.RegisterProcessor(processors.NewSeparationProcessor(cfg.Tools.SeparationBinary, store, assets))
	orch.RegisterProcessor(processors.NewAnalysisProcessor(entities.JobTypeAnalysis, cfg.Tools.DetectorBinary, sessions, assets))
	orch.RegisterProcessor(processors.NewAnalysisProcessor(entities.JobTypeStemAnalysis, cfg.Tools.DetectorBinary, sessions, assets))
	orch.RegisterProcessor(processors.NewSlicingProcessor(sliceEngine, banks))
	orch.RegisterProcessor(processors.NewMomentsProcessor(momentDetector, momentRepo))
	orch.RegisterProcessor(processors.NewPeaksProcessor(cfg.Tools.AudiowaveformBinary, store))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchDone := make(chan error, 1)
	go func() { orchDone <- orch.Run(ctx) }()

	hub := ws.NewSessionHub(bus, logger)
	sequencer := ws.NewSequencerHandler(logger)

	router := loopforgehttp.NewRouter(&loopforgehttp.Deps{
		Logger:    logger,
		DB:        db,
		Storage:   store,
		Orch:      orch,
		Sessions:  sessions,
		Jobs:      jobRepo,
		Banks:     banks,
		Sequences: sequences,
		Moments:   momentRepo,
		Hub:       hub,
		Sequencer: sequencer,
		Metrics:   promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("loopforged listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	if err := <-orchDone; err != nil {
		logger.Error("orchestrator stopped with error", zap.Error(err))
	}
}
