package api

import "time"

type (
	// BudgetAlert is raised the first time a reservation pushes global spend
	// past one of the alert thresholds
	BudgetAlert struct {
		Time      time.Time `json:"time"`
		Threshold float64   `json:"threshold"`
		Ratio     float64   `json:"ratio"`
		SpentUSD  float64   `json:"spent_usd"`
		LimitUSD  float64   `json:"limit_usd"`
	}

	// BudgetStatus is a point-in-time view of the global spend ledger
	BudgetStatus struct {
		SpentUSD     float64 `json:"spent_usd"`
		LimitUSD     float64 `json:"limit_usd"`
		RemainingUSD float64 `json:"remaining_usd"`
		UsagePercent float64 `json:"usage_percent"`
	}
)
