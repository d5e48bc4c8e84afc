package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
	"github.com/fyrsmithlabs/perceptd/internal/config"
	"github.com/fyrsmithlabs/perceptd/internal/http"
	"github.com/fyrsmithlabs/perceptd/internal/perception"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the perceptd HTTP API",
	Long: `Run the perceptd HTTP API until SIGINT or SIGTERM.

Analyzed utterances with a user_id are remembered in working and long-term
memory and, when events.nats_url is set, published to NATS.

Examples:
  perceptd serve
  PERCEPTD_SERVER_HTTP_PORT=8080 perceptd serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	deps, err := initDependencies(ctx, cfg, depOptions{memory: true, events: true, telemetry: true})
	if err != nil {
		return err
	}
	defer deps.Close()

	if reloader, err := startLexiconReloader(ctx, cfg.Affect, deps); err != nil {
		return err
	} else if reloader != nil {
		defer reloader.Stop()
	}

	srv, err := http.NewServer(http.Deps{
		Perception:  deps.perception,
		Memory:      deps.memory,
		Transcriber: deps.transcriber,
	}, deps.logger.Underlying().Named("http"), &http.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		RateLimit:     cfg.Server.RateLimit,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		Version:       version,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case sig := <-sigCh:
		deps.logger.Info(ctx, "shutting down gracefully", zap.String("signal", sig.String()))
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	deps.logger.Info(ctx, "server shutdown complete")
	return nil
}

// startLexiconReloader watches the configured lexicon files, if any.
func startLexiconReloader(ctx context.Context, c config.AffectConfig, deps *dependencies) (*perception.Reloader, error) {
	var paths []string
	for _, p := range []string{c.LexiconPath, c.PolarityLexiconPath} {
		if p == "" {
			continue
		}
		expanded, err := config.ExpandPath(p)
		if err != nil {
			return nil, err
		}
		paths = append(paths, expanded)
	}
	if len(paths) == 0 {
		return nil, nil
	}

	build := func() (*affect.Engine, error) { return newEngine(c) }
	r, err := perception.NewReloader(deps.perception, build, paths, 0, deps.logger)
	if err != nil {
		return nil, err
	}
	if err := r.Start(ctx); err != nil {
		r.Stop()
		return nil, err
	}
	deps.logger.Info(ctx, "watching lexicon files", zap.Strings("paths", paths))
	return r, nil
}
