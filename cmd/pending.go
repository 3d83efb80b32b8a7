package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/account-advisor/internal/store"
)

var (
	pendingAccountID string
	pendingLimit     int
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List recommendations awaiting approval",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		recs, err := st.ListPending(ctx, store.PendingFilter{
			AccountID: pendingAccountID,
			Limit:     pendingLimit,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	},
}

func init() {
	pendingCmd.Flags().StringVar(&pendingAccountID, "account", "", "filter by CRM account ID")
	pendingCmd.Flags().IntVar(&pendingLimit, "limit", 50, "maximum rows to return")
	rootCmd.AddCommand(pendingCmd)
}
