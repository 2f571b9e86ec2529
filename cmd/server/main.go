package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	emailPkg "gymops/internal/adapters/email"
	web "gymops/internal/adapters/http"
	"gymops/internal/adapters/http/middleware"
	"gymops/internal/adapters/http/perf"
	"gymops/internal/adapters/storage"
	scheduleStore "gymops/internal/adapters/storage/schedule"
	"gymops/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", "gymops.yaml", "path to the YAML config file")
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of the given admin password and exit")
	flag.Parse()

	if *hashPassword != "" {
		if err := printPasswordHash(os.Stdout, *hashPassword); err != nil {
			fatal("failed to hash password", err)
		}
		return
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found; using process environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("failed to load config", err)
	}
	cfg.ApplyEnv(os.Getenv)
	slog.SetDefault(newLogger(cfg))

	collector := perf.NewCollector(perf.DefaultRingSize)

	registry, closeDB, err := openRegistry(cfg, collector)
	if err != nil {
		fatal("failed to open storage", err)
	}
	defer closeDB()

	var sender emailPkg.Sender
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.Notify.From, cfg.Notify.ReplyTo)
		slog.Info("email sender configured", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("GYMOPS_RESEND_KEY is not set; commit summaries will not be delivered")
		}
	}

	mux := web.NewMux(web.Config{
		Registry:          registry,
		Collector:         collector,
		Sender:            sender,
		Recipients:        cfg.Notify.Recipients,
		MaxWeeks:          cfg.Recurrence.MaxWeeks,
		CalendarName:      cfg.Calendar.Name,
		AdminUser:         cfg.Auth.Username,
		AdminPasswordHash: []byte(cfg.Auth.PasswordHash),
		CSRFKey:           []byte(cfg.CSRFKey),
		SecureCookies:     cfg.IsProduction(),
		TrustedOrigins:    cfg.CORS.AllowedOrigins,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		RatePerSecond:     cfg.RateLimit.PerSecond,
		RateBurst:         cfg.RateLimit.Burst,
	})

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		slog.Info("gymops starting", "version", version, "addr", cfg.Listen, "env", cfg.Env,
			"storage", cfg.Storage.Driver, "schema", storage.SchemaVersion)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server failed", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		return
	}
	slog.Info("server stopped cleanly")
}

// openRegistry builds the per-branch store registry for the configured driver.
func openRegistry(cfg *config.Config, collector *perf.Collector) (*scheduleStore.Registry, func(), error) {
	if cfg.Storage.Driver == config.DriverMemory {
		slog.Warn("using in-memory storage; slots are lost on restart")
		return scheduleStore.NewMemoryRegistry(), func() {}, nil
	}

	// Immediate transactions take the write lock up front, so writers from
	// different branches wait on busy_timeout instead of failing mid-batch.
	dsn := cfg.Storage.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := storage.InitDB(db); err != nil {
		db.Close()
		return nil, nil, err
	}

	timedDB := storage.NewTimedDB(db, collector, 0)
	registry := scheduleStore.NewRegistry(func(branch string) scheduleStore.Store {
		return scheduleStore.NewSQLiteStore(timedDB, branch)
	})
	return registry, func() { db.Close() }, nil
}

// newLogger returns a text logger in development and JSON in production.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// printPasswordHash writes the value to use for auth.password_hash or
// GYMOPS_ADMIN_PASSWORD_HASH.
func printPasswordHash(w io.Writer, password string) error {
	hash, err := middleware.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(hash))
	return err
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
