package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/outrage-civic/outrage-api/internal/drafts"
	"github.com/outrage-civic/outrage-api/internal/formmap"
	"github.com/outrage-civic/outrage-api/internal/moderation"
	"github.com/outrage-civic/outrage-api/internal/reps"
	"github.com/outrage-civic/outrage-api/internal/selector"
	"github.com/outrage-civic/outrage-api/internal/server"
	"github.com/outrage-civic/outrage-api/internal/store"
	"github.com/outrage-civic/outrage-api/pkg/anthropic"
	"github.com/outrage-civic/outrage-api/pkg/cicero"
)

var servePort int

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// buildDeps wires workflow components from config. Components whose provider
// key is missing stay nil; their routes respond 503 instead of failing at
// startup.
func buildDeps(st store.Store) server.Deps {
	deps := server.Deps{
		Store:          st,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	if cfg.Cicero.Key != "" {
		client := cicero.NewClient(cfg.Cicero.Key,
			cicero.WithBaseURL(cfg.Cicero.BaseURL),
			cicero.WithMaxOfficials(cfg.Cicero.MaxOfficials),
			cicero.WithRateLimit(cfg.Cicero.RateLimit),
		)
		repTTL := time.Duration(cfg.Cache.RepresentativeTTLHours) * time.Hour
		deps.Resolver = reps.NewResolver(client, st, repTTL)
	} else {
		zap.L().Warn("cicero key not set, representative lookup disabled")
	}

	if cfg.Anthropic.Key != "" {
		ai := anthropic.NewClient(cfg.Anthropic.Key)
		formTTL := time.Duration(cfg.Cache.FormAnalysisTTLHours) * time.Hour
		deps.Selector = selector.New(ai, cfg.Anthropic.HaikuModel)
		deps.Generator = drafts.NewGenerator(ai, cfg.Anthropic.SonnetModel, cfg.Anthropic.HaikuModel)
		deps.Mapper = formmap.NewMapper(ai, cfg.Anthropic.SonnetModel, st, formTTL)
		deps.Moderator = moderation.NewModerator(ai, cfg.Anthropic.HaikuModel)
	} else {
		zap.L().Warn("anthropic key not set, selection, drafting, and form analysis disabled")
	}

	return deps
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the outreach API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		srv := server.New(buildDeps(st))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
