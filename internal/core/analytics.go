package core

import (
	"math"
	"sort"
)

const (
	baseHealthScore      = 75
	highMonthlySpend     = 3000
	veryHighMonthlySpend = 5000
	diningShareLimit     = 0.3
	topMerchantLimit     = 10
	budgetHeadroom       = 1.1
	forecastWindow       = 3
)

// GenerateReport derives the full analytics report from a transaction set.
// It is pure and total: any input, including an empty one, yields a
// well-formed report and never an error. Callers own the returned value.
func GenerateReport(txns []Transaction) Report {
	if len(txns) == 0 {
		return emptyReport()
	}

	var (
		total      float64
		byCategory = make(map[string]float64)
		byMonth    = make(map[string]float64)
		perMerch   = make(map[string]*MerchantStat)
		order      []string
		start, end string
	)
	for _, t := range txns {
		total += t.Amount
		byCategory[t.Category] += t.Amount
		byMonth[t.Month()] += t.Amount

		st, ok := perMerch[t.Merchant]
		if !ok {
			st = &MerchantStat{Merchant: t.Merchant}
			perMerch[t.Merchant] = st
			order = append(order, t.Merchant)
		}
		st.Spent += t.Amount
		st.Count++

		if start == "" || t.Date < start {
			start = t.Date
		}
		if t.Date > end {
			end = t.Date
		}
	}

	// Stable sort on a first-seen-ordered slice keeps equal spenders in
	// input order.
	top := make([]MerchantStat, 0, len(order))
	for _, name := range order {
		top = append(top, *perMerch[name])
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Spent > top[j].Spent })
	if len(top) > topMerchantLimit {
		top = top[:topMerchantLimit]
	}

	budget := make(map[string]float64, len(byCategory))
	for cat, spent := range byCategory {
		budget[cat] = math.Ceil(spent * budgetHeadroom)
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	return Report{
		TransactionCount: len(txns),
		TotalSpent:       total,
		AvgSpendPerTxn:   total / float64(len(txns)),
		ByCategory:       byCategory,
		ByMonth:          byMonth,
		TopMerchants:     top,
		Budget:           budget,
		Forecast:         forecastFrom(months, byMonth),
		HealthScore:      healthFrom(total, len(months), byCategory[CategoryDining]),
		PeriodHint:       PeriodHint{Start: start, End: end, MonthsDetected: len(months)},
	}
}

// emptyReport is the canonical zero-data report: initialized empty
// collections, a nil forecast, and the no-data health score.
func emptyReport() Report {
	return Report{
		ByCategory:   map[string]float64{},
		ByMonth:      map[string]float64{},
		TopMerchants: []MerchantStat{},
		Budget:       map[string]float64{},
		HealthScore:  HealthScore{Score: 0, Summary: SummaryNoData},
	}
}

// forecastFrom projects next-month spend as the mean of the trailing
// window of monthly totals, rounded to the nearest integer. months must be
// sorted ascending. Fewer than two distinct months yields no forecast.
func forecastFrom(months []string, byMonth map[string]float64) *Forecast {
	if len(months) < 2 {
		return nil
	}
	tail := months
	if len(tail) > forecastWindow {
		tail = tail[len(tail)-forecastWindow:]
	}
	var sum float64
	for _, m := range tail {
		sum += byMonth[m]
	}
	confidence := ConfidenceMedium
	if len(months) >= forecastWindow {
		confidence = ConfidenceHigh
	}
	return &Forecast{
		NextMonthSpend: int(math.Round(sum / float64(len(tail)))),
		Confidence:     confidence,
		Method:         ForecastMethod,
	}
}

// healthFrom scores spending health on [0,100]. The two monthly-average
// penalties stack: an average above veryHighMonthlySpend incurs both. The
// dining penalty applies when dining spend exceeds its share limit of the
// total.
func healthFrom(total float64, monthCount int, dining float64) HealthScore {
	score := baseHealthScore
	monthly := total / float64(monthCount)
	if monthly > highMonthlySpend {
		score -= 15
	}
	if monthly > veryHighMonthlySpend {
		score -= 10
	}
	if dining > diningShareLimit*total {
		score -= 10
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	summary := SummaryReduce
	switch {
	case score >= 80:
		summary = SummaryExcellent
	case score >= 60:
		summary = SummaryGood
	}
	return HealthScore{Score: score, Summary: summary}
}
