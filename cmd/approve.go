package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/account-advisor/internal/advisor"
	"github.com/sells-group/account-advisor/internal/model"
)

var (
	approveApprover  string
	approveTitle     string
	approvePriority  string
	approveNextSteps []string
)

var approveCmd = &cobra.Command{
	Use:   "approve <recommendation-id>",
	Short: "Approve a pending recommendation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := st.GetRecommendation(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return eris.Errorf("recommendation not found: %s", id)
		}

		var mods *advisor.Modifications
		if approveTitle != "" || approvePriority != "" || len(approveNextSteps) > 0 {
			mods = &advisor.Modifications{
				Title:     approveTitle,
				Priority:  model.Priority(approvePriority),
				NextSteps: approveNextSteps,
			}
		}

		gate := advisor.NewGate(cfg.Gate)
		if err := gate.Approve(rec, approveApprover, mods); err != nil {
			return err
		}

		if err := st.RecordDecision(ctx, rec, model.StatusPendingApproval); err != nil {
			return eris.Wrap(err, "record approval")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	approveCmd.Flags().StringVar(&approveApprover, "approver", "", "approver identifier (required)")
	approveCmd.Flags().StringVar(&approveTitle, "title", "", "override the recommendation title")
	approveCmd.Flags().StringVar(&approvePriority, "priority", "", "override the priority (low|medium|high|critical)")
	approveCmd.Flags().StringSliceVar(&approveNextSteps, "next-step", nil, "replace the next-step checklist (repeatable)")
	approveCmd.MarkFlagRequired("approver")
	rootCmd.AddCommand(approveCmd)
}
