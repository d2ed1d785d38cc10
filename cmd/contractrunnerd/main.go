// Command contractrunnerd is the read-only ops HTTP surface over a guard's
// accumulated run outcomes: /healthz, /score, and /gate. It does not run
// workflows itself. It serves whatever is recorded in its in-memory
// registry; this command records nothing and no endpoint accepts run
// outcomes, so /score and /gate answer 404 until code in this package
// calls registry.Record.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/neil-the-nowledgeable/contextcore/internal/runtimeconfig"
)

func main() {
	configPath := flag.String("config", "/etc/contextcore/config.yaml", "path to the runtime config YAML file")
	flag.Parse()

	cfg, err := runtimeconfig.Load(*configPath)
	if err != nil {
		zapLoggerOrDie().Sugar().Fatalw("failed to load runtime config", "error", err, "path", *configPath)
	}

	zapLog := buildZapLogger(cfg.Logging)
	defer func() { _ = zapLog.Sync() }()
	log := zapr.NewLogger(zapLog)

	reg := newRegistry()
	router := newRouter(reg)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("starting contractrunnerd", "port", cfg.Server.Port, "guard_mode", cfg.Guard.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "ops server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down contractrunnerd")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "graceful shutdown failed")
	}
}

func buildZapLogger(cfg runtimeconfig.LoggingConfig) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return zapLoggerOrDie()
	}
	return logger
}

func zapLoggerOrDie() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}
