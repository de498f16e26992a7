package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dashboard-engine/internal/record"
)

// accountFields are the SOQL fields selected for Account queries.
var accountFields = []string{
	"Id", "Name", "Website", "Industry", "Description", "OwnerId",
	"NumberOfEmployees", "AnnualRevenue", "Type", "LastActivityDate",
	"LastModifiedDate",
}

// opportunityFields are the SOQL fields selected for Opportunity queries.
var opportunityFields = []string{
	"Id", "Name", "AccountId", "OwnerId", "StageName", "Amount", "Type",
	"CloseDate", "Probability", "NextStep", "Description", "IsClosed",
	"LastModifiedDate",
}

// Batch holds one fetch of raw dashboard inputs.
type Batch struct {
	Accounts      []record.Record
	Opportunities []record.Record
}

// FetchAccounts queries up to limit accounts.
func FetchAccounts(ctx context.Context, c Client, limit int) ([]record.Record, error) {
	soql := fmt.Sprintf("SELECT %s FROM Account ORDER BY LastModifiedDate DESC LIMIT %d",
		strings.Join(accountFields, ", "), limit)
	records, err := c.QueryRecords(ctx, soql)
	if err != nil {
		return nil, eris.Wrap(err, "crm: fetch accounts")
	}
	return records, nil
}

// FetchOpportunities queries up to limit opportunities.
func FetchOpportunities(ctx context.Context, c Client, limit int) ([]record.Record, error) {
	soql := fmt.Sprintf("SELECT %s FROM Opportunity ORDER BY CloseDate ASC LIMIT %d",
		strings.Join(opportunityFields, ", "), limit)
	records, err := c.QueryRecords(ctx, soql)
	if err != nil {
		return nil, eris.Wrap(err, "crm: fetch opportunities")
	}
	return records, nil
}

// FetchBatch fetches accounts and opportunities concurrently. The engine's
// own computation stays single-threaded; only this boundary fans out.
func FetchBatch(ctx context.Context, c Client, limit int) (*Batch, error) {
	var batch Batch
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		accounts, err := FetchAccounts(ctx, c, limit)
		if err != nil {
			return err
		}
		batch.Accounts = accounts
		return nil
	})
	g.Go(func() error {
		opps, err := FetchOpportunities(ctx, c, limit)
		if err != nil {
			return err
		}
		batch.Opportunities = opps
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &batch, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
