package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/voice-agent/internal/dialogue"
)

const (
	shutdownTimeout    = 10 * time.Second
	minJanitorInterval = time.Minute
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the voice agent HTTP server",
	Long:  "Serves the voice, call, dashboard and Twilio webhook APIs plus /metrics, evicts idle call sessions and, when monitoring is enabled, checks KPI alert thresholds in the background.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(env, cfg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
		})
		g.Go(func() error {
			runJanitor(gCtx, env.Manager, cfg.Voice.SessionTTL())
			return nil
		})

		if cfg.Monitoring.Enabled {
			checker := newChecker(env.Store, cfg.Monitoring)
			g.Go(func() error {
				checker.Run(gCtx)
				return nil
			})
		}

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// runJanitor evicts sessions idle for longer than ttl until ctx is done.
func runJanitor(ctx context.Context, m *dialogue.Manager, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	interval := max(ttl/4, minJanitorInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.EvictIdle(ctx, ttl)
			if err != nil {
				zap.L().Warn("session eviction failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Info("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}
