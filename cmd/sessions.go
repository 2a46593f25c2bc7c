package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentnexus/copilot/cmd/ui"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect stored workflow sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List session IDs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := buildApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store.Setup(ctx); err != nil {
			return err
		}
		ids, err := a.Store.ListIDs(ctx)
		if err != nil {
			return err
		}

		if len(ids) == 0 {
			ui.Hint("no sessions stored")
			return nil
		}
		ui.Title(fmt.Sprintf("%d session(s)", len(ids)))
		for _, id := range ids {
			fmt.Println("  " + id)
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print one session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := buildApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store.Setup(ctx); err != nil {
			return err
		}
		sess, err := a.Store.Load(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}
