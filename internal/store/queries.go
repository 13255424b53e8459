package store

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"subtrack/internal/core"
)

// DefaultUpcomingDays is the renewal window used when callers have no
// preference.
const DefaultUpcomingDays = 7

func fold(s string) string {
	return cases.Fold().String(s)
}

// filtered applies the search term and category filter, then sorts.
func (st State) filtered() []core.Subscription {
	f := st.Filter
	term := fold(f.SearchTerm)

	out := make([]core.Subscription, 0, len(st.Subscriptions))
	for _, sub := range st.Subscriptions {
		if term != "" && !strings.Contains(fold(sub.Name), term) && !strings.Contains(fold(sub.Category), term) {
			continue
		}
		if !f.MatchesAllCategories() && sub.Category != f.FilterCategory {
			continue
		}
		out = append(out, sub)
	}

	compare := comparator(f.SortBy)
	if compare == nil {
		return out
	}
	desc := f.SortOrder != core.Asc
	slices.SortStableFunc(out, func(a, b core.Subscription) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

// comparator returns nil for an unknown sort key, which keeps insertion order.
func comparator(by core.SortBy) func(a, b core.Subscription) int {
	switch by {
	case core.SortByName:
		return func(a, b core.Subscription) int { return strings.Compare(fold(a.Name), fold(b.Name)) }
	case core.SortByPrice:
		return func(a, b core.Subscription) int { return cmp.Compare(a.Price, b.Price) }
	case core.SortByRenewalDate:
		return func(a, b core.Subscription) int { return a.RenewalDate.Compare(b.RenewalDate) }
	}
	return nil
}

func (st State) totalMonthly() float64 {
	var total float64
	for _, sub := range st.Subscriptions {
		if sub.IsActive {
			total += sub.MonthlyPrice()
		}
	}
	return total
}

// upcoming returns active records renewing in [today, today+days], earliest
// first. A negative window is empty.
func (st State) upcoming(today core.Date, days int) []core.Subscription {
	out := []core.Subscription{}
	if days < 0 {
		return out
	}
	until := today.AddDays(days)
	for _, sub := range st.Subscriptions {
		if !sub.IsActive {
			continue
		}
		if sub.RenewalDate.Compare(today) < 0 || sub.RenewalDate.Compare(until) > 0 {
			continue
		}
		out = append(out, sub)
	}
	slices.SortStableFunc(out, func(a, b core.Subscription) int {
		return a.RenewalDate.Compare(b.RenewalDate)
	})
	return out
}

func (st State) categorySummary() core.CategorySummary {
	summary := core.CategorySummary{}
	for _, sub := range st.Subscriptions {
		if !sub.IsActive {
			continue
		}
		ct := summary[sub.Category]
		ct.Count++
		ct.Total += sub.MonthlyPrice()
		summary[sub.Category] = ct
	}
	return summary
}

// categories lists distinct categories in first-seen order.
func (st State) categories() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, sub := range st.Subscriptions {
		if _, ok := seen[sub.Category]; ok {
			continue
		}
		seen[sub.Category] = struct{}{}
		out = append(out, sub.Category)
	}
	return out
}

func (st State) activeCount() int {
	n := 0
	for _, sub := range st.Subscriptions {
		if sub.IsActive {
			n++
		}
	}
	return n
}

func (st State) overview() core.ExpenseOverview {
	monthly := st.totalMonthly()
	var yearly float64
	for _, sub := range st.Subscriptions {
		if sub.IsActive {
			yearly += sub.YearlyPrice()
		}
	}
	return core.ExpenseOverview{
		TotalMonthly: monthly,
		TotalYearly:  yearly,
		ActiveCount:  st.activeCount(),
		TotalCount:   len(st.Subscriptions),
		ByCategory:   st.categorySummary().Sorted(),
	}
}
