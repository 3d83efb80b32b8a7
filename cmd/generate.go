package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/account-advisor/internal/advisor"
	"github.com/sells-group/account-advisor/internal/model"
	"github.com/sells-group/account-advisor/pkg/datascout"
	"github.com/sells-group/account-advisor/pkg/notion"
)

var (
	generateAccountID    string
	generateContextPath  string
	generateActivityDays int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a recommendation batch for an account",
	Long:  "Builds the recommendation context from the CRM and Memory Analyst (or a local JSON snapshot), scores candidate recommendations, and persists the ranked batch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		rctx, err := buildContext(cmd)
		if err != nil {
			return err
		}

		pb, err := loadPlaybook()
		if err != nil {
			return err
		}

		opts := []advisor.AdvisorOption{advisor.WithStore(st)}
		if cfg.Notion.Token != "" && cfg.Notion.ReviewDB != "" {
			opts = append(opts, advisor.WithNotion(notion.NewClient(cfg.Notion.Token)))
		}
		adv := advisor.New(cfg, pb, opts...)

		result, err := adv.GenerateBatch(ctx, rctx)
		if err != nil {
			return eris.Wrap(err, "generate batch")
		}

		zap.L().Info("batch generated",
			zap.String("account", rctx.AccountID),
			zap.String("batch", result.Batch.ID),
			zap.Int("recommendations", len(result.Batch.Recommendations)),
			zap.Int("skipped", len(result.Skipped)),
			zap.Int64("duration_ms", result.DurationMS),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// buildContext assembles the scoring input either from a local JSON snapshot
// or by querying the Data Scout and Memory Analyst.
func buildContext(cmd *cobra.Command) (*model.RecommendationContext, error) {
	ctx := cmd.Context()

	if generateContextPath != "" {
		data, err := os.ReadFile(generateContextPath)
		if err != nil {
			return nil, eris.Wrap(err, "read context file")
		}
		var rctx model.RecommendationContext
		if err := json.Unmarshal(data, &rctx); err != nil {
			return nil, eris.Wrap(err, "parse context file")
		}
		if rctx.AccountID == "" {
			return nil, eris.New("context file missing account_id")
		}
		return &rctx, nil
	}

	if generateAccountID == "" {
		return nil, eris.New("either --account or --context is required")
	}

	scout, err := initDataScout()
	if err != nil {
		return nil, err
	}

	acct, err := datascout.FetchAccount(ctx, scout, generateAccountID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, eris.Errorf("account not found: %s", generateAccountID)
	}

	opps, err := datascout.FetchOpportunities(ctx, scout, generateAccountID)
	if err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, 0, -generateActivityDays)
	tasks, err := datascout.FetchActivity(ctx, scout, generateAccountID, since)
	if err != nil {
		return nil, err
	}

	rctx := datascout.BuildContext(acct, opps, tasks, time.Now())

	analyst := initMemoryAnalyst()
	patterns, err := analyst.Patterns(ctx, generateAccountID)
	if err != nil {
		zap.L().Warn("memory analyst patterns unavailable", zap.Error(err))
	} else {
		rctx.Patterns = patterns
	}
	outcomes, err := analyst.Outcomes(ctx, generateAccountID)
	if err != nil {
		zap.L().Warn("memory analyst outcomes unavailable", zap.Error(err))
	} else {
		rctx.Outcomes = outcomes
	}

	return rctx, nil
}

func init() {
	generateCmd.Flags().StringVar(&generateAccountID, "account", "", "CRM account ID")
	generateCmd.Flags().StringVar(&generateContextPath, "context", "", "path to a JSON recommendation context snapshot")
	generateCmd.Flags().IntVar(&generateActivityDays, "activity-days", 90, "days of activity history to fetch")
	rootCmd.AddCommand(generateCmd)
}
