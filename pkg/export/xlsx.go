// Package export writes dashboard views to spreadsheet files for offline
// review and sharing.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dashboard-engine/internal/dashboard"
	"github.com/sells-group/dashboard-engine/internal/record"
)

// accountColumns maps spreadsheet headers to record fields for account views.
var accountColumns = []column{
	{"Name", "Name"},
	{"Industry", "Industry"},
	{"Priority Score", record.FieldPriorityScore},
	{"Tier", record.FieldPriorityTier},
	{"Risk", record.FieldRiskFlag},
	{"Employees", "NumberOfEmployees"},
	{"Annual Revenue", "AnnualRevenue"},
	{"Grouped Accounts", record.FieldGroupCount},
	{"Owner", "OwnerId"},
}

// opportunityColumns maps spreadsheet headers to record fields for
// opportunity views.
var opportunityColumns = []column{
	{"Name", "Name"},
	{"Stage", "StageName"},
	{"Amount", "Amount"},
	{"Close Date", "CloseDate"},
	{"Risk", record.FieldRiskFlag},
	{"Deal Health", record.FieldMeddpiccScore},
	{"Next Step", "NextStep"},
	{"Owner", "OwnerId"},
}

type column struct {
	header string
	field  string
}

// WriteXLSX saves a dashboard result to path as a single-sheet workbook named
// after the view. Numeric fields are written as numbers so spreadsheet
// sorting works.
func WriteXLSX(res *dashboard.Result, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(string(res.View))
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	cols := columnsFor(res.View)

	header := sheet.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c.header)
	}

	for _, rec := range res.Records {
		row := sheet.AddRow()
		for _, c := range cols {
			writeCell(row.AddCell(), rec, c.field)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	return nil
}

func columnsFor(view dashboard.View) []column {
	switch view {
	case dashboard.ViewPriorityAccounts:
		return accountColumns
	default:
		return opportunityColumns
	}
}

func writeCell(cell *xlsx.Cell, rec record.Record, field string) {
	if n, ok := rec.GetNumber(field); ok {
		cell.SetFloat(n)
		return
	}
	if s, ok := rec.GetString(field); ok {
		cell.SetString(s)
		return
	}
	cell.SetString("")
}
