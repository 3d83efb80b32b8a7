package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"

	"github.com/sells-group/account-advisor/internal/model"
	"github.com/sells-group/account-advisor/pkg/notion"
)

// deliverPending pushes every pending-approval recommendation in the batch
// to the Notion review database. Delivery failures are logged and never
// fail batch generation.
func (a *Advisor) deliverPending(ctx context.Context, batch *model.RecommendationBatch) {
	for i := range batch.Recommendations {
		rec := &batch.Recommendations[i]
		if rec.Status != model.StatusPendingApproval {
			continue
		}
		rc := BuildRenderContext(rec)
		if err := deliverToReviewQueue(ctx, a.notion, a.cfg.Notion.ReviewDB, rc); err != nil {
			zap.L().Warn("advisor: review-queue delivery failed",
				zap.String("id", rec.ID),
				zap.Error(err),
			)
		}
	}
}

// deliverToReviewQueue creates one review page from a render context.
func deliverToReviewQueue(ctx context.Context, client notion.Client, dbID string, rc RenderContext) error {
	created := notionapi.Date(rc.CreatedAt)
	_, err := client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: notionapi.Properties{
			"Name": notionapi.TitleProperty{
				Title: []notionapi.RichText{
					{Text: &notionapi.Text{Content: fmt.Sprintf("[%s] %s", rc.AccountID, rc.Title)}},
				},
			},
			"Recommendation ID": notionapi.RichTextProperty{
				RichText: []notionapi.RichText{
					{Text: &notionapi.Text{Content: rc.RecommendationID}},
				},
			},
			"Type": notionapi.SelectProperty{
				Select: notionapi.Option{Name: rc.Type},
			},
			"Priority": notionapi.SelectProperty{
				Select: notionapi.Option{Name: rc.Priority},
			},
			"Confidence Level": notionapi.SelectProperty{
				Select: notionapi.Option{Name: rc.ConfidenceLevel},
			},
			"Confidence": notionapi.NumberProperty{
				Number: rc.Confidence,
			},
			"Urgency": notionapi.NumberProperty{
				Number: rc.UrgencyScore,
			},
			"Created": notionapi.DateProperty{
				Date: &notionapi.DateObject{Start: &created},
			},
		},
		Children: reviewPageBody(rc),
	})
	return err
}

// reviewPageBody renders the rationale and next steps as page blocks.
func reviewPageBody(rc RenderContext) []notionapi.Block {
	blocks := []notionapi.Block{
		&notionapi.ParagraphBlock{
			BasicBlock: notionapi.BasicBlock{
				Object: notionapi.ObjectTypeBlock,
				Type:   notionapi.BlockTypeParagraph,
			},
			Paragraph: notionapi.Paragraph{
				RichText: []notionapi.RichText{
					{Text: &notionapi.Text{Content: rc.Rationale}},
				},
			},
		},
	}
	if len(rc.NextSteps) > 0 {
		blocks = append(blocks, &notionapi.ParagraphBlock{
			BasicBlock: notionapi.BasicBlock{
				Object: notionapi.ObjectTypeBlock,
				Type:   notionapi.BlockTypeParagraph,
			},
			Paragraph: notionapi.Paragraph{
				RichText: []notionapi.RichText{
					{Text: &notionapi.Text{Content: "Next steps: " + strings.Join(rc.NextSteps, "; ")}},
				},
			},
		})
	}
	return blocks
}
