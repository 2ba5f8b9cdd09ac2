package core

// Forecast confidence labels and the fixed method tag reported alongside
// the next-month projection.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ForecastMethod   = "Average of last 3 months"
)

// Health score summaries, selected by threshold on the clamped score.
const (
	SummaryExcellent = "Excellent financial health!"
	SummaryGood      = "Good, with room for improvement"
	SummaryReduce    = "Consider reducing spending"
	SummaryNoData    = "No data available"
)

type (
	// MerchantStat aggregates the spend attributed to a single merchant.
	MerchantStat struct {
		Merchant string  `json:"merchant"`
		Spent    float64 `json:"spent"`
		Count    int     `json:"count"`
	}

	// Forecast projects next-month spend from the trailing months. A nil
	// forecast means fewer than two distinct months were observed.
	Forecast struct {
		NextMonthSpend int    `json:"nextMonthSpend"`
		Confidence     string `json:"confidence"`
		Method         string `json:"method"`
	}

	// HealthScore is a 0-100 heuristic of spending health.
	HealthScore struct {
		Score   int    `json:"score"`
		Summary string `json:"summary"`
	}

	// PeriodHint is the inferred date range and month count covered by a
	// transaction set.
	PeriodHint struct {
		Start          string `json:"start"`
		End            string `json:"end"`
		MonthsDetected int    `json:"monthsDetected"`
	}

	// Report is the fully derived analytics output. It has no identity and
	// is recomputed from scratch on every request; callers own the value.
	Report struct {
		TransactionCount int                `json:"transactionCount"`
		TotalSpent       float64            `json:"totalSpent"`
		AvgSpendPerTxn   float64            `json:"avgSpendPerTxn"`
		ByCategory       map[string]float64 `json:"byCategory"`
		ByMonth          map[string]float64 `json:"byMonth"`
		TopMerchants     []MerchantStat     `json:"topMerchants"`
		Budget           map[string]float64 `json:"budget"`
		Forecast         *Forecast          `json:"forecast"`
		HealthScore      HealthScore        `json:"healthScore"`
		PeriodHint       PeriodHint         `json:"periodHint"`
	}
)
