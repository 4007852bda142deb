package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/config"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/controller"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/logging"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/mobo"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/objective"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/turbo"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	serviceLogger := logger.With(zap.String("service", "tuned"))

	budgets := map[controller.Phase]int{
		controller.PhaseBeLoadingTurbo:  cfg.Tuning.PhaseBudget,
		controller.PhaseBeEjectionTurbo: cfg.Tuning.PhaseBudget,
		controller.PhaseHDLoadingTurbo:  cfg.Tuning.PhaseBudget,
		controller.PhaseGlobalMOBO:      cfg.Tuning.PhaseBudget,
	}
	ctrl, err := controller.New(controller.Config{
		Registry:     objective.NewRegistry(),
		PhaseBudgets: budgets,
		Turbo: turbo.Config{
			NInit:         cfg.Tuning.NInit,
			CandidatePool: cfg.Tuning.CandidatePool,
			Kernel:        cfg.Tuning.Kernel,
		},
		MOBO: mobo.Config{
			NInit:         cfg.Tuning.NInit,
			CandidatePool: cfg.Tuning.CandidatePool * 2,
			Kernel:        cfg.Tuning.Kernel,
		},
		WarmStartMargin: cfg.Tuning.WarmStartMargin,
		Seed:            cfg.Tuning.Seed,
		Logger:          serviceLogger,
	})
	if err != nil {
		serviceLogger.Fatal("failed to create controller", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := server.NewServer(cfg, ctrl, registry, serviceLogger)
	srv.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		serviceLogger.Info("starting server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serviceLogger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	serviceLogger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serviceLogger.Error("server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	// Best effort: preserve session progress across restarts.
	if err := ctrl.SaveState(cfg.State.Path); err != nil {
		serviceLogger.Error("failed to save state on shutdown", zap.Error(err))
	}

	serviceLogger.Info("server stopped")
}
