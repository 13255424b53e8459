package core

import "sort"

// CategoryTotal aggregates the active subscriptions of one category.
// Total is the sum of monthly-normalised prices.
type CategoryTotal struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// CategorySummary maps a category name to its aggregate. Categories are
// compared exactly, so "Music" and "music " are separate entries.
type CategorySummary map[string]CategoryTotal

// CategoryAmount is a single row of a summary, used where a stable order matters.
type CategoryAmount struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// Sum returns the total of all categories.
func (cs CategorySummary) Sum() float64 {
	var sum float64
	for _, ct := range cs {
		sum += ct.Total
	}
	return sum
}

// Sorted returns the summary rows ordered by descending total, then name.
func (cs CategorySummary) Sorted() []CategoryAmount {
	rows := make([]CategoryAmount, 0, len(cs))
	for name, ct := range cs {
		rows = append(rows, CategoryAmount{Name: name, Count: ct.Count, Total: ct.Total})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// ExpenseOverview is the dashboard summary of the active collection.
type ExpenseOverview struct {
	TotalMonthly float64          `json:"totalMonthly"`
	TotalYearly  float64          `json:"totalYearly"`
	ActiveCount  int              `json:"activeCount"`
	TotalCount   int              `json:"totalCount"`
	ByCategory   []CategoryAmount `json:"byCategory"`
}
