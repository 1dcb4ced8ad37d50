package dataprocessing

import (
	"math"
	"sort"

	"smechannel/pkg/contracts/domain"
)

// MinBandingRows is the smallest working set for which premium bands are computed
const MinBandingRows = 10

// QuintileThresholds returns the 20th, 40th, 60th and 80th percentile of
// values by nearest rank at index floor((n-1)*p). It returns false when
// fewer than MinBandingRows finite values are present.
func QuintileThresholds(values []float64) (domain.BandThresholds, bool) {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sorted = append(sorted, v)
		}
	}
	n := len(sorted)
	if n < MinBandingRows {
		return domain.BandThresholds{}, false
	}
	sort.Float64s(sorted)

	q := func(p float64) float64 {
		return sorted[int(math.Floor(float64(n-1)*p))]
	}

	return domain.BandThresholds{
		P20: q(0.2),
		P40: q(0.4),
		P60: q(0.6),
		P80: q(0.8),
	}, true
}

// BandSummaries classifies each record into a premium band and summarizes
// the bands in their fixed order, including empty ones.
func BandSummaries(records []domain.Record, t domain.BandThresholds) []domain.GroupSummary {
	index := make(map[string]int, len(domain.BandOrder))
	out := make([]domain.GroupSummary, len(domain.BandOrder))
	for i, band := range domain.BandOrder {
		index[band] = i
		out[i] = domain.GroupSummary{Key: band}
	}

	for _, r := range records {
		g := &out[index[t.Band(r.Premium)]]
		g.Sum += r.Premium
		g.Count++
	}

	for i := range out {
		if out[i].Count > 0 {
			out[i].Mean = out[i].Sum / float64(out[i].Count)
		}
	}

	return out
}
