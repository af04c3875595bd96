package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tarpitlabs/tarpit/internal/config"
	"github.com/tarpitlabs/tarpit/internal/llm"
	"github.com/tarpitlabs/tarpit/internal/version"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tarpit status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("tarpit %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:  error loading: %v\n", err)
				return nil
			}

			fmt.Printf("Server:  port=%d bind=%s auth=%v\n",
				cfg.Server.Port, cfg.Server.Bind, cfg.Server.Auth.Token != "")
			fmt.Printf("Session: store=%s maxTurns=%d\n",
				cfg.Session.Store, cfg.Engagement.MaxTurns)
			fmt.Printf("Persona: name=%s\n", cfg.Persona.Name)

			registry := llm.NewRegistryFromConfig(cfg.LLM, log)
			providers := registry.List()
			if len(providers) > 0 {
				fmt.Printf("LLM:     %s\n", strings.Join(providers, ", "))
			} else {
				fmt.Println("LLM:     (none configured)")
			}

			if cfg.Callback.URL != "" {
				fmt.Printf("Callback: %s\n", cfg.Callback.URL)
			} else {
				fmt.Println("Callback: (not configured)")
			}

			if cfg.Email != nil {
				fmt.Printf("Email:   %s@%s (every %ds)\n",
					cfg.Email.Username, cfg.Email.Server, cfg.Email.PollSeconds)
			}

			return nil
		},
	}
}
