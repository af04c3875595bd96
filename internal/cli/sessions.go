package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tarpitlabs/tarpit/internal/store"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect recorded honeypot sessions",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsShowCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions in the SQLite store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(paths.Database); err != nil {
				return fmt.Errorf("no session database at %s", paths.Database)
			}

			db, err := store.Open(paths.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			sessions := store.NewSQLiteSessionStore(db)
			ids := sessions.List()
			if len(ids) == 0 {
				fmt.Println("No sessions recorded.")
				return nil
			}

			fmt.Printf("%-30s %-12s %6s %9s %12s\n", "SESSION", "STATUS", "TURNS", "REPORTED", "IDENTIFIERS")
			for _, id := range ids {
				sess := sessions.Get(id)
				if sess == nil {
					continue
				}
				fmt.Printf("%-30s %-12s %6d %9v %12d\n",
					sess.ID, sess.Status, sess.TurnCount, sess.Reported, len(sess.Identifiers))
			}
			return nil
		},
	}
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session's collected intelligence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(paths.Database, log)
			if err != nil {
				return err
			}
			defer db.Close()

			sess := store.NewSQLiteSessionStore(db).Get(args[0])
			if sess == nil {
				return fmt.Errorf("session %q not found", args[0])
			}

			fmt.Printf("Session:  %s\n", sess.ID)
			fmt.Printf("Status:   %s (score %.2f)\n", sess.Status, sess.ScamScore)
			fmt.Printf("Turns:    %d\n", sess.TurnCount)
			fmt.Printf("Reported: %v\n", sess.Reported)
			if len(sess.Keywords) > 0 {
				fmt.Printf("Keywords: %v\n", sess.Keywords)
			}
			for _, id := range sess.Identifiers {
				fmt.Printf("  [%s] %s (turn %d)\n", id.Kind, id.Value, id.SourceTurn)
			}
			return nil
		},
	}
}
