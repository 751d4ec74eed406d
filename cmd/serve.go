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

	"github.com/sells-group/kval/internal/api"
	"github.com/sells-group/kval/internal/examples"
	"github.com/sells-group/kval/internal/store"
	"github.com/sells-group/kval/internal/summary"
	"github.com/sells-group/kval/pkg/anthropic"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the validation API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "serve: open store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "serve: migrate store")
		}
		if err := seedDefaults(ctx, st); err != nil {
			return err
		}

		var summarizer summary.Summarizer
		if cfg.Anthropic.Key != "" {
			summarizer = summary.NewAnthropicSummarizer(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.NewServer(st, summarizer, cfg.Data.Dir).Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("ai_enabled", summarizer != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve: listen")
		}

		return nil
	},
}

// seedDefaults writes the built-in snapshot and policy into empty slots so a
// fresh server always has something to validate.
func seedDefaults(ctx context.Context, st store.Store) error {
	if _, err := st.GetSnapshot(ctx); errors.Is(err, store.ErrNotFound) {
		if err := st.SaveSnapshot(ctx, examples.DefaultSnapshot()); err != nil {
			return eris.Wrap(err, "serve: seed snapshot")
		}
	} else if err != nil {
		return eris.Wrap(err, "serve: check snapshot")
	}

	if _, err := st.GetPolicy(ctx); errors.Is(err, store.ErrNotFound) {
		if err := st.SavePolicy(ctx, examples.DefaultPolicy()); err != nil {
			return eris.Wrap(err, "serve: seed policy")
		}
	} else if err != nil {
		return eris.Wrap(err, "serve: check policy")
	}

	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
