package transactions

import (
	"slices"
	"time"

	"github.com/wnt/blinkwatch/internal/models"
)

// GroupByMonth groups records by month key. Groups are ordered newest month
// first, then keys that are not a month, then UnknownDate; records keep their
// original order inside a group.
func GroupByMonth(records []models.FormattedTransaction) []models.MonthGroup {
	index := make(map[string]int)
	groups := make([]models.MonthGroup, 0)

	for _, r := range records {
		i, ok := index[r.MonthKey]
		if !ok {
			i = len(groups)
			index[r.MonthKey] = i
			groups = append(groups, models.MonthGroup{Key: r.MonthKey})
		}
		groups[i].Transactions = append(groups[i].Transactions, r)
	}

	slices.SortStableFunc(groups, func(a, b models.MonthGroup) int {
		unknownA, unknownB := a.Key == models.UnknownDate, b.Key == models.UnknownDate
		switch {
		case unknownA && unknownB:
			return 0
		case unknownA:
			return 1
		case unknownB:
			return -1
		}

		ta, okA := parseMonthKey(a.Key)
		tb, okB := parseMonthKey(b.Key)
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return 1
		case !okB:
			return -1
		}
		return tb.Compare(ta)
	})

	return groups
}

func parseMonthKey(key string) (time.Time, bool) {
	t, err := time.Parse(MonthKeyLayout, key)
	return t, err == nil
}
