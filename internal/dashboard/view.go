package dashboard

import (
	"github.com/sells-group/dashboard-engine/internal/appconfig"
	"github.com/sells-group/dashboard-engine/internal/record"
)

// View identifies a dashboard view. Views differ only in data, not code:
// object type, default filters, default sort, and whether account dedup runs.
type View string

// The closed set of views.
const (
	ViewPriorityAccounts View = "priority-accounts"
	ViewAtRiskDeals      View = "at-risk-deals"
	ViewPipelineForecast View = "pipeline-forecast"
	ViewRenewals         View = "renewals"
)

// ObjectType reports which CRM object a view is built from. ok is false for
// unknown views.
func (v View) ObjectType() (objectType string, ok bool) {
	spec, ok := viewSpecs[v]
	return spec.objectType, ok
}

// SortSpec is an explicit sort order.
type SortSpec struct {
	Field      string
	Descending bool
}

// viewSpec holds the per-view configuration replacing the old per-role code
// branches.
type viewSpec struct {
	objectType     string
	dedup          bool
	defaultSort    SortSpec
	defaultFilters []appconfig.Condition
	// postFilter runs after enrichment, so it can see derived fields.
	postFilter func(record.Record) bool
}

var viewSpecs = map[View]viewSpec{
	ViewPriorityAccounts: {
		objectType:  appconfig.ObjectAccount,
		dedup:       true,
		defaultSort: SortSpec{Field: record.FieldPriorityScore, Descending: true},
	},
	ViewAtRiskDeals: {
		objectType:  appconfig.ObjectOpportunity,
		defaultSort: SortSpec{Field: "CloseDate"},
		postFilter: func(rec record.Record) bool {
			flag, _ := rec.GetString(record.FieldRiskFlag)
			return flag != ""
		},
	},
	ViewPipelineForecast: {
		objectType:  appconfig.ObjectOpportunity,
		defaultSort: SortSpec{Field: "CloseDate"},
		defaultFilters: []appconfig.Condition{
			{Field: "IsClosed", Operator: appconfig.OpEquals, Value: "false"},
		},
	},
	ViewRenewals: {
		objectType:  appconfig.ObjectOpportunity,
		defaultSort: SortSpec{Field: "CloseDate"},
		defaultFilters: []appconfig.Condition{
			{Field: "Type", Operator: appconfig.OpContains, Value: "Renewal"},
		},
	},
}
