package dataprocessing

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"smechannel/pkg/contracts/domain"
)

// TopAdvisorLimit caps the advisor leaderboard
const TopAdvisorLimit = 20

// EmptyActiveSetWarning is attached to snapshots built from the unfiltered records
const EmptyActiveSetWarning = "No active records (NET PREMIUM > 0 and BUSINESS TYPE contains NEW/RENEW); using unfiltered dataset for debugging."

// IsActive reports whether a record counts toward KPIs: positive premium
// and a business type mentioning NEW or RENEW.
func IsActive(r domain.Record) bool {
	if r.Premium <= 0 {
		return false
	}
	t := strings.ToUpper(r.BusinessType)
	return strings.Contains(t, "NEW") || strings.Contains(t, "RENEW")
}

// Aggregation is the output of Aggregate before metadata is attached
type Aggregation struct {
	KPIs           domain.KPIs
	Category       []domain.GroupSummary
	LineOfBusiness []domain.GroupSummary
	PremiumBanding []domain.GroupSummary
	Thresholds     *domain.BandThresholds
	TopAdvisors    []domain.AdvisorSummary
	Warning        string
	Conditions     []domain.Condition
}

// Aggregator computes KPIs and group summaries over normalized records
type Aggregator struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewAggregator creates an aggregator
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		logger: logger.With(slog.String("component", "aggregator")),
		now:    time.Now,
	}
}

// Aggregate filters the active records, falling back to all records with a
// warning when none are active, and summarizes the chosen working set.
func (a *Aggregator) Aggregate(records []domain.Record) Aggregation {
	var out Aggregation

	active := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if IsActive(r) {
			active = append(active, r)
		}
	}

	used := active
	if len(active) == 0 {
		used = records
		out.Warning = EmptyActiveSetWarning
		out.Conditions = append(out.Conditions, domain.Condition{
			Code:    domain.ConditionEmptyActiveSet,
			Message: EmptyActiveSetWarning,
			Count:   len(records),
		})
		a.logger.Warn("no active rows, using all rows", slog.Int("total_rows", len(records)))
	}

	out.KPIs = computeKPIs(used)
	out.KPIs.ActiveRows = len(active)
	out.KPIs.TotalRows = len(records)

	out.Category = GroupBy(used, func(r domain.Record) string { return r.Category })
	out.LineOfBusiness = GroupBy(used, func(r domain.Record) string { return r.LineOfBusiness })

	premiums := make([]float64, len(used))
	for i, r := range used {
		premiums[i] = r.Premium
	}
	if t, ok := QuintileThresholds(premiums); ok {
		out.Thresholds = &t
		out.PremiumBanding = BandSummaries(used, t)
	} else {
		out.Conditions = append(out.Conditions, domain.Condition{
			Code:    domain.ConditionBandingSkipped,
			Message: "Premium banding skipped (need at least 10 rows).",
			Count:   len(used),
		})
	}

	out.TopAdvisors = TopAdvisors(used, TopAdvisorLimit)

	a.logger.Debug("aggregation complete",
		slog.Int("active_rows", out.KPIs.ActiveRows),
		slog.Int("used_rows", out.KPIs.UsedRows),
		slog.Float64("total_premium", out.KPIs.TotalPremium))

	return out
}

// Snapshot aggregates records and wraps the result with metadata
func (a *Aggregator) Snapshot(records []domain.Record, meta domain.SnapshotMeta) *domain.AnalysisSnapshot {
	agg := a.Aggregate(records)

	meta.Warning = agg.Warning
	meta.Conditions = append(meta.Conditions, agg.Conditions...)
	if meta.Conditions == nil {
		meta.Conditions = []domain.Condition{}
	}
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = a.now().UTC()
	}

	return &domain.AnalysisSnapshot{
		KPIs:              agg.KPIs,
		Category:          agg.Category,
		LineOfBusiness:    agg.LineOfBusiness,
		PremiumBanding:    agg.PremiumBanding,
		PremiumThresholds: agg.Thresholds,
		TopAdvisors:       agg.TopAdvisors,
		Meta:              meta,
	}
}

func computeKPIs(used []domain.Record) domain.KPIs {
	var k domain.KPIs

	policies := make(map[string]struct{})
	advisors := make(map[string]struct{})
	for _, r := range used {
		k.TotalPremium += r.Premium
		if r.Policy != "" {
			policies[r.Policy] = struct{}{}
		}
		if r.Advisor != "" {
			advisors[r.Advisor] = struct{}{}
		}
	}

	k.PolicyCount = len(policies)
	if k.PolicyCount == 0 {
		k.PolicyCount = len(used)
	}
	if k.PolicyCount > 0 {
		k.AvgPremiumPerPolicy = k.TotalPremium / float64(k.PolicyCount)
	}

	k.AdvisorCount = len(advisors)
	if k.AdvisorCount > 0 {
		k.PoliciesPerAdvisorAvg = float64(k.PolicyCount) / float64(k.AdvisorCount)
	}

	k.UsedRows = len(used)
	return k
}

// GroupBy sums premium per key and sorts the groups by descending sum.
// Groups with equal sums keep the order in which they were first seen.
func GroupBy(records []domain.Record, key func(domain.Record) string) []domain.GroupSummary {
	index := make(map[string]int)
	groups := make([]domain.GroupSummary, 0)

	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, domain.GroupSummary{Key: k})
		}
		groups[i].Sum += r.Premium
		groups[i].Count++
	}

	for i := range groups {
		groups[i].Mean = groups[i].Sum / float64(groups[i].Count)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Sum > groups[j].Sum
	})

	return groups
}

// TopAdvisors ranks advisors by total premium and keeps at most limit entries
func TopAdvisors(records []domain.Record, limit int) []domain.AdvisorSummary {
	groups := GroupBy(records, func(r domain.Record) string { return r.Advisor })
	if len(groups) > limit {
		groups = groups[:limit]
	}

	out := make([]domain.AdvisorSummary, len(groups))
	for i, g := range groups {
		out[i] = domain.AdvisorSummary{
			Name:       g.Key,
			Policies:   g.Count,
			NetPremium: g.Sum,
			AvgPremium: g.Mean,
		}
	}
	return out
}
