package core

const (
	SortByName        SortBy = "name"
	SortByPrice       SortBy = "price"
	SortByRenewalDate SortBy = "renewalDate"

	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"

	// CategoryAll is the filterCategory sentinel meaning "no category filter".
	CategoryAll = "all"
)

type (
	SortBy    string
	SortOrder string

	// FilterState holds the list view's search, category filter and sort selection.
	FilterState struct {
		SearchTerm     string    `json:"searchTerm"`
		FilterCategory string    `json:"filterCategory"`
		SortBy         SortBy    `json:"sortBy"`
		SortOrder      SortOrder `json:"sortOrder"`
	}
)

// DefaultFilterState returns an empty search, no category filter and
// ascending renewal-date order.
func DefaultFilterState() FilterState {
	return FilterState{
		SearchTerm:     "",
		FilterCategory: "",
		SortBy:         SortByRenewalDate,
		SortOrder:      Asc,
	}
}

func (s SortBy) IsValid() bool {
	switch s {
	case SortByName, SortByPrice, SortByRenewalDate:
		return true
	}
	return false
}

func (o SortOrder) IsValid() bool {
	return o == Asc || o == Desc
}

// MatchesAllCategories reports whether the category filter is disabled.
func (f FilterState) MatchesAllCategories() bool {
	return f.FilterCategory == "" || f.FilterCategory == CategoryAll
}
