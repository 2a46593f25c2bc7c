package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentnexus/copilot/cmd/ui"
	"github.com/agentnexus/copilot/pkg/engine/api"
)

var rejectReasonFlag string

var approveCmd = &cobra.Command{
	Use:   "approve <session-id>",
	Short: "Grant single-use approval to a pending session",
	Long: `Approve marks the session as human-approved. The approval covers
exactly one privileged step: re-run the session to execute it.`,
	Args: cobra.ExactArgs(1),
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
		if err := a.Store.GrantApproval(ctx, args[0]); err != nil {
			return err
		}
		ui.Hint("approved, resume with: copilot run --session " + args[0] + " <request>")
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <session-id>",
	Short: "Reject a session's pending step",
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

		sess.SetApproved(false)
		sess.MarkRejected()
		sess.AppendTurn(api.RoleUser, "Remediation rejected by operator: "+rejectReasonFlag)
		if err := a.Store.Save(ctx, args[0], sess); err != nil {
			return err
		}

		a.Metrics.FalsePositive()
		ui.Hint("session rejected")
		return nil
	},
}

func init() {
	rejectCmd.Flags().StringVar(&rejectReasonFlag, "reason", "Rejected: false positive", "Why the step was rejected")
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
}
