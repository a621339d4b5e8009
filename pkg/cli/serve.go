package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/vantage-health/visor/pkg/bundle"
	"github.com/vantage-health/visor/pkg/logging"
	"github.com/vantage-health/visor/pkg/pipeline"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 30
	serverMaxHeaderBytes      = 20
)

var (
	listenFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "Address on which the server will listen (default: from config)",
	}

	serveCmd = &cli.Command{
		Name:    "serve",
		Aliases: []string{"server"},
		Usage:   "Start the local inference API",
		Action:  cmdServe,
		Flags: []cli.Flag{
			listenFlag,
			debugFlag,
		},
	}
)

func cmdServe(c *cli.Context) error {
	cfg := getConfig(c)

	level := "info"
	if cfg.Debug {
		level = "debug"
	}
	logging.SetDefaultServerLogger(level)

	// The bundle loads once here; a broken bundle means the server never
	// starts taking requests.
	pipe, b, err := loadPipeline(cfg)
	if err != nil {
		return err
	}

	address := c.String(listenFlag.Name)
	if address == "" {
		address = cfg.Conf.Listen
	}

	apiKey, err := getAPIKey()
	if err != nil {
		slog.Debug("no API key configured, serving unauthenticated", "error", err)
		apiKey = ""
	}

	mux := makeRouter(cfg, pipe, b, apiKey)
	s := &http.Server{
		Addr:           address,
		Handler:        mux,
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("error starting server", "error", err)
		}
	}()

	slog.Info("server started", "address", address, "model", pipe.Model(), "bundle", b.Name)

	<-done

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

func makeRouter(cfg *appConfig, pipe *pipeline.Pipeline, b *bundle.Bundle, apiKey string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthHandler)

	// Inference API
	mux.Handle("POST /v1/predictions", requireKey(apiKey, predictAPIHandler(cfg, pipe)))
	mux.Handle("GET /v1/predictions", requireKey(apiKey, historyAPIHandler(cfg)))
	mux.Handle("GET /v1/predictions/summary", requireKey(apiKey, summaryAPIHandler(cfg)))
	mux.Handle("GET /v1/model", requireKey(apiKey, modelAPIHandler(pipe, b)))

	return mux
}

// requireKey guards a handler with the configured API key. An empty key
// disables the check (local single-user mode).
func requireKey(apiKey string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey != "" && r.Header.Get("X-API-Key") != apiKey {
			writeError(w, http.StatusUnauthorized, "missing or invalid API key")
			return
		}
		next(w, r)
	})
}
