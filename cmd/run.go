package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agentnexus/copilot/cmd/ui"
	"github.com/agentnexus/copilot/pkg/engine/api"
)

var (
	runSessionFlag string
	runBudgetFlag  int
	runYesFlag     bool
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Run a request through the workflow engine",
	Long: `Run plans and executes a remediation workflow for the given request.

When a step needs human approval the command pauses and asks. Approved
steps execute immediately in a follow-up engine pass; rejected sessions
stop. Use --session to resume a previous session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := buildApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		return runWorkflow(ctx, a, args[0])
	},
}

func init() {
	runCmd.Flags().StringVar(&runSessionFlag, "session", "", "Session ID to resume (default: new session)")
	runCmd.Flags().IntVar(&runBudgetFlag, "steps", 0, "Step budget per engine pass (default from config)")
	runCmd.Flags().BoolVar(&runYesFlag, "yes", false, "Approve privileged steps without prompting")
	rootCmd.AddCommand(runCmd)
}

// runWorkflow drives engine passes until the workflow completes or a step
// is rejected.
func runWorkflow(ctx context.Context, a *app, request string) error {
	sessionID := runSessionFlag
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	budget := runBudgetFlag
	if budget <= 0 {
		budget = a.Config.Engine.StepBudget
	}
	approver := ui.NewApprover()

	ui.Title("DevOps Copilot")
	ui.Hint("request: " + request)
	ui.Hint("session: " + sessionID)

	for {
		stop, done := ui.StartLoading("planning workflow...")
		results, err := a.Engine.Run(ctx, request, sessionID, budget)
		close(stop)
		<-done
		if err != nil {
			return err
		}

		pendingTool := ""
		for _, r := range results {
			ui.StepResult(r)
			if r.Status == api.StatusPendingApproval {
				pendingTool = r.ToolName
			}
		}

		if pendingTool == "" {
			ui.Hint("workflow complete")
			return nil
		}

		approved := runYesFlag
		if !approved {
			approved, err = approver.Decide(pendingTool)
			if err != nil {
				return err
			}
		}
		if !approved {
			ui.Hint("session left pending, approve later with: copilot approve " + sessionID)
			return nil
		}

		if err := a.Store.GrantApproval(ctx, sessionID); err != nil {
			return fmt.Errorf("granting approval: %w", err)
		}
	}
}
