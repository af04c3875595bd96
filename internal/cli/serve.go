package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tarpitlabs/tarpit/internal/callback"
	"github.com/tarpitlabs/tarpit/internal/channel/email"
	"github.com/tarpitlabs/tarpit/internal/config"
	"github.com/tarpitlabs/tarpit/internal/detector"
	"github.com/tarpitlabs/tarpit/internal/engine"
	"github.com/tarpitlabs/tarpit/internal/gateway"
	"github.com/tarpitlabs/tarpit/internal/llm"
	"github.com/tarpitlabs/tarpit/internal/logging"
	"github.com/tarpitlabs/tarpit/internal/persona"
	"github.com/tarpitlabs/tarpit/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the honeypot server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if logLevel == "" {
				if cfg.Logging.ConsoleStyle == "json" {
					log = logging.NewJSON(nil, cfg.Logging.Level)
				} else {
					log = logging.New(nil, cfg.Logging.Level)
				}
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			// Session store
			var sessions engine.SessionStore
			if cfg.Session.Store == "sqlite" {
				db, err := store.Open(paths.Database, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				sessions = store.NewSQLiteSessionStore(db)
				log.Info().Str("path", paths.Database).Msg("using SQLite session store")
			} else {
				sessions = engine.NewMemorySessionStore()
				log.Info().Msg("using in-memory session store")
			}

			// LLM registry and persona
			registry := llm.NewRegistryFromConfig(cfg.LLM, log)
			if len(registry.List()) == 0 {
				log.Warn().Msg("no LLM provider configured — persona will use canned fallback replies")
			}

			personaCfg := persona.Config{
				Name:              cfg.Persona.Name,
				Character:         cfg.Persona.Character,
				Model:             cfg.LLM.Model,
				MaxTokens:         cfg.Persona.MaxTokens,
				Temperature:       cfg.Persona.Temperature,
				HistoryWindow:     cfg.Persona.HistoryWindow,
				MaxReplySentences: cfg.Persona.MaxReplySentences,
				Timeout:           time.Duration(cfg.Persona.TimeoutSeconds) * time.Second,
			}
			if fb := cfg.LLM.Fallback; fb != nil && fb.Model != "" {
				personaCfg.Fallbacks = []string{fb.Model}
			}
			responder := persona.NewResponder(personaCfg, registry, log)

			// Callback dispatcher
			if cfg.Callback.URL == "" {
				log.Warn().Msg("callback.url not configured — intelligence reports cannot be delivered")
			}
			dispatcher := callback.NewHTTPDispatcher(
				cfg.Callback.URL,
				cfg.Callback.AuthToken,
				cfg.Callback.MaxAttempts,
				time.Duration(cfg.Callback.TimeoutSeconds)*time.Second,
				log,
			)

			hub := gateway.NewHub(log)

			eng := engine.New(
				engine.Config{
					WatchThreshold: cfg.Engagement.WatchThreshold,
					MaxTurns:       cfg.Engagement.MaxTurns,
				},
				detector.New(cfg.Detector.Threshold),
				responder,
				sessions,
				dispatcher,
				hub,
				log,
			)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Email != nil {
				poller := email.NewPoller(*cfg.Email, eng, log)
				go func() {
					if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
						log.Error().Err(err).Msg("email channel stopped")
					}
				}()
			}

			srv := gateway.New(cfg, eng, hub, log)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}
