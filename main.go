package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kinetic-data/repcoach/internal/api"
	"github.com/kinetic-data/repcoach/internal/calibrate"
	"github.com/kinetic-data/repcoach/internal/capture"
	"github.com/kinetic-data/repcoach/internal/config"
	"github.com/kinetic-data/repcoach/internal/db"
	"github.com/kinetic-data/repcoach/internal/engine"
	"github.com/kinetic-data/repcoach/internal/infer"
	"github.com/kinetic-data/repcoach/internal/session"
	"github.com/kinetic-data/repcoach/internal/timeutil"
	"github.com/kinetic-data/repcoach/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Run with the synthetic camera and scripted pose estimator")
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	dbPath     = flag.String("db", "", "SQLite database path (overrides config)")
	configPath = flag.String("config", "", "Path to JSON config file")
)

func main() {
	flag.Parse()
	log.Printf("repcoach %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	cfg := config.Empty()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	addr := cfg.GetListen()
	if *listen != "" {
		addr = *listen
	}
	databasePath := cfg.GetDBPath()
	if *dbPath != "" {
		databasePath = *dbPath
	}

	if aliasPath := cfg.GetAliasPath(); aliasPath != "" {
		if err := engine.LoadAliases(aliasPath); err != nil {
			log.Fatalf("failed to load exercise aliases: %v", err)
		}
	}

	database, err := db.NewDB(databasePath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(cfg.GetMigrationsDir()); err != nil {
		log.Printf("migrations skipped: %v", err)
	}

	clock := timeutil.RealClock{}

	// Capture and inference. In dev mode a synthetic camera and scripted
	// estimator drive the full pipeline without hardware.
	captureCfg := capture.DefaultSourceConfig()
	captureCfg.FailureThreshold = cfg.GetCaptureFailureThreshold()

	var open capture.OpenFunc
	var estimator infer.Estimator
	if *devMode {
		open = func(sourceID int) (capture.Device, error) {
			return capture.NewSimDevice(clock), nil
		}
		estimator = infer.NewScripted(clock)
	} else {
		open = capture.NewMJPEGOpener(cfg.GetCameraStreamURL())
		estimator = infer.NewRemoteEstimator(cfg.GetPoseServiceURL())
	}

	source := capture.NewSource(open, captureCfg, clock)
	defer source.Stop()
	scheduler := infer.NewScheduler(estimator, clock)

	// Engine and session orchestration.
	eng := engine.New(clock, engine.HeuristicClassifier{})
	calibrator := calibrate.New(calibrate.Config{
		Duration: cfg.GetCalibrationDuration(),
	}, clock, nil)

	sessCfg := session.DefaultConfig()
	sessCfg.RestMode = session.RestMode(cfg.GetRestMode())
	sessCfg.FeedbackInterval = cfg.GetFeedbackInterval()
	sessCfg.BodyWeightKg = cfg.GetBodyWeightKg()
	orch := session.New(sessCfg, clock, eng, scheduler, source, calibrator, database, session.NewHub())

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Inference worker: consumes the capture hand-off.
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx, source.Handoff())
		log.Print("inference routine terminated")
	}()

	// Session orchestrator: drives the engine and publishes events.
	wg.Add(1)
	go func() {
		defer wg.Done()
		orch.Run(ctx)
		orch.Hub().Close()
		log.Print("session routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(database, orch, source).ServeMux()

		server := &http.Server{
			Addr:    addr,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
