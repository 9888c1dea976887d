// Command credgate serves the credential engine over HTTP.
//
// Configuration comes from CREDGATE_-prefixed environment variables, an
// optional .env file and the flags below. Run with at least one source:
//
//	CREDGATE_BOOTSTRAP_ADMIN_EMAIL=admin@example.com \
//	CREDGATE_BOOTSTRAP_ADMIN_PASSWORD='Adm1n!pass' \
//	  go run ./cmd/credgate --log-format console
//
// Then:
//
//	curl -i -X POST localhost:8080/api/auth/login \
//	  -H 'Content-Type: application/json' \
//	  -d '{"email":"admin@example.com","password":"Adm1n!pass"}'
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/MrEthical07/goCred/internal/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "credgate: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("credgate", pflag.ExitOnError)
	envFile := fs.String("env-file", ".env", "dotenv file to load before reading the environment")
	fs.String(config.FlagName("listen.addr"), ":8080", "HTTP listen address")
	fs.String(config.FlagName("log.level"), "info", "log level")
	fs.String(config.FlagName("log.format"), "json", "log format: json or console")
	fs.String(config.FlagName("attempts.store"), config.StoreMemory, "attempt store: memory or redis")
	fs.String(config.FlagName("redis.addr"), "localhost:6379", "redis address for the redis attempt store")
	fs.Bool(config.FlagName("http.trust_forwarded"), false, "take the client IP from X-Forwarded-For")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := config.Load(fs, *envFile)
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(settings.Log.Level, settings.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := buildEngine(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := engine.Config()
	for _, w := range cfg.Lint() {
		logger.Warn("config lint", zap.String("code", w.Code), zap.String("message", w.Message))
	}

	srv := &http.Server{
		Addr:              settings.Listen.Addr,
		Handler:           newRouter(engine, settings, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       settings.HTTP.ReadTimeout,
		WriteTimeout:      settings.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
