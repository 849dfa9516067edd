package models

// FilterConfig is transient view state; it selects and orders trips but never changes them.
type FilterConfig struct {
	MaxPrice  float64 `json:"maxPrice" yaml:"max_price"`
	MaxDays   int     `json:"maxDays" yaml:"max_days"`
	Query     string  `json:"query" yaml:"query"`
	SortBy    string  `json:"sortBy" yaml:"sort_by"`
	Category  string  `json:"category" yaml:"category"`
	Country   string  `json:"country" yaml:"country"`
	MinRating float64 `json:"minRating" yaml:"min_rating"`
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MaxPrice:  DefaultMaxPrice,
		MaxDays:   DefaultMaxDays,
		SortBy:    SortNone,
		Category:  CategoryAll,
		Country:   CountryAll,
		MinRating: 0,
	}
}

// Normalize fills empty selectors with "All" and unknown sort keys with "none".
func (c FilterConfig) Normalize() FilterConfig {
	if c.Category == "" {
		c.Category = CategoryAll
	}
	if c.Country == "" {
		c.Country = CountryAll
	}
	if !IsSortKey(c.SortBy) {
		c.SortBy = SortNone
	}
	return c
}

func IsSortKey(key string) bool {
	switch key {
	case SortNone, SortPriceAsc, SortPriceDesc, SortDaysAsc, SortDaysDesc:
		return true
	}
	return false
}
