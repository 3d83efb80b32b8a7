package datascout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/account-advisor/internal/model"
)

// Account represents a Salesforce Account record.
type Account struct {
	ID            string  `json:"Id" salesforce:"Id"`
	Name          string  `json:"Name" salesforce:"Name"`
	Industry      string  `json:"Industry" salesforce:"Industry"`
	AnnualRevenue float64 `json:"AnnualRevenue" salesforce:"AnnualRevenue"`
	Type          string  `json:"Type" salesforce:"Type"`
	Rating        string  `json:"Rating" salesforce:"Rating"`
	RenewalDate   string  `json:"Renewal_Date__c" salesforce:"Renewal_Date__c"`
}

// Opportunity represents a Salesforce Opportunity record.
type Opportunity struct {
	ID        string  `json:"Id" salesforce:"Id"`
	Name      string  `json:"Name" salesforce:"Name"`
	StageName string  `json:"StageName" salesforce:"StageName"`
	Amount    float64 `json:"Amount" salesforce:"Amount"`
	CloseDate string  `json:"CloseDate" salesforce:"CloseDate"`
	IsClosed  bool    `json:"IsClosed" salesforce:"IsClosed"`
	IsWon     bool    `json:"IsWon" salesforce:"IsWon"`
}

// Task represents a Salesforce Task used as an activity entry.
type Task struct {
	ID           string `json:"Id" salesforce:"Id"`
	Subject      string `json:"Subject" salesforce:"Subject"`
	Type         string `json:"Type" salesforce:"Type"`
	Status       string `json:"Status" salesforce:"Status"`
	ActivityDate string `json:"ActivityDate" salesforce:"ActivityDate"`
}

var accountFields = []string{
	"Id", "Name", "Industry", "AnnualRevenue", "Type", "Rating", "Renewal_Date__c",
}

var opportunityFields = []string{
	"Id", "Name", "StageName", "Amount", "CloseDate", "IsClosed", "IsWon",
}

var taskFields = []string{
	"Id", "Subject", "Type", "Status", "ActivityDate",
}

// FetchAccount queries Salesforce for an Account by its ID.
// Returns nil if no account is found.
func FetchAccount(ctx context.Context, c Client, accountID string) (*Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Id = '%s' LIMIT 1",
		strings.Join(accountFields, ", "),
		escapeSoql(accountID),
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("datascout: fetch account %s", accountID))
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// FetchOpportunities queries open and recently closed Opportunities for the account.
func FetchOpportunities(ctx context.Context, c Client, accountID string) ([]Opportunity, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Opportunity WHERE AccountId = '%s' ORDER BY CloseDate DESC LIMIT 200",
		strings.Join(opportunityFields, ", "),
		escapeSoql(accountID),
	)

	var opps []Opportunity
	if err := c.Query(ctx, soql, &opps); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("datascout: fetch opportunities for %s", accountID))
	}
	return opps, nil
}

// FetchActivity queries recent Tasks logged against the account.
func FetchActivity(ctx context.Context, c Client, accountID string, since time.Time) ([]Task, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Task WHERE AccountId = '%s' AND ActivityDate >= %s ORDER BY ActivityDate DESC LIMIT 500",
		strings.Join(taskFields, ", "),
		escapeSoql(accountID),
		since.Format("2006-01-02"),
	)

	var tasks []Task
	if err := c.Query(ctx, soql, &tasks); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("datascout: fetch activity for %s", accountID))
	}
	return tasks, nil
}

// BuildContext assembles a RecommendationContext from the raw CRM records.
// The snapshot payloads use the field names the extractor's allowlists expect.
func BuildContext(acct *Account, opps []Opportunity, tasks []Task, now time.Time) *model.RecommendationContext {
	rctx := &model.RecommendationContext{AccountID: acct.ID}

	fields := map[string]any{
		"industry":       acct.Industry,
		"type":           acct.Type,
		"annual_revenue": acct.AnnualRevenue,
	}
	riskLevel := ""
	switch acct.Rating {
	case "Hot":
		riskLevel = "low"
	case "Warm":
		riskLevel = "medium"
	case "Cold":
		riskLevel = "high"
	}
	rctx.Account = model.AccountSnapshot{
		RecordID:   acct.ID,
		Name:       acct.Name,
		Revenue:    acct.AnnualRevenue,
		RiskLevel:  riskLevel,
		Fields:     fields,
		SnapshotAt: now,
	}
	rctx.RiskIndicators = riskLevel == "high"

	if acct.RenewalDate != "" {
		if t, err := time.Parse("2006-01-02", acct.RenewalDate); err == nil {
			fields["renewal_date"] = acct.RenewalDate
			rctx.DeadlineAt = &t
		}
	}

	for _, o := range opps {
		updated := now
		var closeDate *time.Time
		if t, err := time.Parse("2006-01-02", o.CloseDate); err == nil {
			updated = t
			closeDate = &t
		}
		rctx.Deals = append(rctx.Deals, model.DealRecord{
			RecordID:  o.ID,
			Stage:     o.StageName,
			Amount:    o.Amount,
			CloseDate: closeDate,
			Fields:    map[string]any{"name": o.Name, "closed": o.IsClosed, "won": o.IsWon},
			UpdatedAt: updated,
		})
	}

	for _, t := range tasks {
		occurred := now
		if ts, err := time.Parse("2006-01-02", t.ActivityDate); err == nil {
			occurred = ts
		}
		kind := strings.ToLower(t.Type)
		if kind == "" {
			kind = "task"
		}
		rctx.Activity = append(rctx.Activity, model.ActivityEntry{
			RecordID:   t.ID,
			Kind:       kind,
			Fields:     map[string]any{"subject": t.Subject, "status": t.Status},
			OccurredAt: occurred,
		})
	}

	return rctx
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
