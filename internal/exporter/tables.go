package exporter

import (
	"sort"
	"time"

	"smechannel/pkg/contracts/domain"
)

// Table is one named block of an export
type Table struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

// Table names double as worksheet names and must stay within 31 characters
const (
	TableSummary      = "Summary"
	TableCategory     = "Intermediary Category"
	TableLOB          = "Line of Business"
	TableBanding      = "Premium Banding"
	TableTopAdvisors  = "Top Advisors"
	TableIngestionLog = "Ingestion"
)

var groupHeaders = []string{"Key", "Net Premium", "Policies", "Avg Premium"}

// Tables flattens a snapshot into its export tables, in output order
func Tables(snap *domain.AnalysisSnapshot) []Table {
	return []Table{
		summaryTable(snap),
		groupTable(TableCategory, snap.Category),
		groupTable(TableLOB, snap.LineOfBusiness),
		bandingTable(snap),
		advisorTable(snap.TopAdvisors),
		metaTable(snap),
	}
}

func summaryTable(snap *domain.AnalysisSnapshot) Table {
	k := snap.KPIs
	rows := [][]interface{}{
		{"Total USGI Net Premium", k.TotalPremium},
		{"Policy Count", k.PolicyCount},
		{"Avg Premium per Policy", k.AvgPremiumPerPolicy},
		{"Advisor Count", k.AdvisorCount},
		{"Policies per Advisor (avg)", k.PoliciesPerAdvisorAvg},
		{"Used Rows", k.UsedRows},
		{"Active Rows", k.ActiveRows},
		{"Total Rows", k.TotalRows},
	}
	if t := snap.PremiumThresholds; t != nil {
		rows = append(rows,
			[]interface{}{"Premium P20", t.P20},
			[]interface{}{"Premium P40", t.P40},
			[]interface{}{"Premium P60", t.P60},
			[]interface{}{"Premium P80", t.P80},
		)
	}
	return Table{Name: TableSummary, Headers: []string{"Metric", "Value"}, Rows: rows}
}

func groupTable(name string, groups []domain.GroupSummary) Table {
	rows := make([][]interface{}, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []interface{}{g.Key, g.Sum, g.Count, g.Mean})
	}
	return Table{Name: name, Headers: groupHeaders, Rows: rows}
}

func bandingTable(snap *domain.AnalysisSnapshot) Table {
	t := groupTable(TableBanding, snap.PremiumBanding)
	t.Headers = []string{"Band", "Net Premium", "Policies", "Avg Premium"}
	return t
}

func advisorTable(advisors []domain.AdvisorSummary) Table {
	rows := make([][]interface{}, 0, len(advisors))
	for i, a := range advisors {
		rows = append(rows, []interface{}{i + 1, a.Name, a.Policies, a.NetPremium, a.AvgPremium})
	}
	return Table{
		Name:    TableTopAdvisors,
		Headers: []string{"Rank", "Advisor", "Policies", "Net Premium", "Avg Premium"},
		Rows:    rows,
	}
}

func metaTable(snap *domain.AnalysisSnapshot) Table {
	m := snap.Meta
	rows := [][]interface{}{
		{"Snapshot ID", snap.ID},
		{"Source", m.Source},
		{"Header Row", m.HeaderRowIndex + 1},
		{"Generated At", m.GeneratedAt.UTC().Format(time.RFC3339)},
	}
	if m.Warning != "" {
		rows = append(rows, []interface{}{"Warning", m.Warning})
	}

	fields := make([]string, 0, len(m.DetectedColumns))
	for f := range m.DetectedColumns {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	for _, f := range fields {
		rows = append(rows, []interface{}{"Column " + f, m.DetectedColumns[domain.Field(f)]})
	}

	for _, c := range m.Conditions {
		rows = append(rows, []interface{}{"Condition " + string(c.Code), c.Message})
	}

	return Table{Name: TableIngestionLog, Headers: []string{"Key", "Value"}, Rows: rows}
}
