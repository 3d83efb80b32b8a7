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
	rejectApprover string
	rejectReason   string
)

var rejectCmd = &cobra.Command{
	Use:   "reject <recommendation-id>",
	Short: "Reject a pending recommendation",
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

		gate := advisor.NewGate(cfg.Gate)
		if err := gate.Reject(rec, rejectApprover, rejectReason); err != nil {
			return err
		}

		if err := st.RecordDecision(ctx, rec, model.StatusPendingApproval); err != nil {
			return eris.Wrap(err, "record rejection")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	rejectCmd.Flags().StringVar(&rejectApprover, "approver", "", "approver identifier (required)")
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "rejection reason (required)")
	rejectCmd.MarkFlagRequired("approver")
	rejectCmd.MarkFlagRequired("reason")
	rootCmd.AddCommand(rejectCmd)
}
