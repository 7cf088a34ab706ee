package transactions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnt/blinkwatch/internal/models"
	"github.com/wnt/blinkwatch/internal/money"
)

func record(monthKey, memo string) models.FormattedTransaction {
	return models.FormattedTransaction{MonthKey: monthKey, Memo: memo}
}

func TestGroupByMonth(t *testing.T) {
	records := []models.FormattedTransaction{
		record("January 2024", "jan-1"),
		record(models.UnknownDate, "unknown-1"),
		record("March 2024", "mar-1"),
		record("January 2024", "jan-2"),
		record("March 2024", "mar-2"),
		record("December 2023", "dec-1"),
	}

	groups := GroupByMonth(records)
	require.Len(t, groups, 4)

	keys := make([]string, 0, len(groups))
	for _, g := range groups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"March 2024", "January 2024", "December 2023", models.UnknownDate}, keys)

	assert.Equal(t, []models.FormattedTransaction{record("March 2024", "mar-1"), record("March 2024", "mar-2")}, groups[0].Transactions)
	assert.Equal(t, []models.FormattedTransaction{record("January 2024", "jan-1"), record("January 2024", "jan-2")}, groups[1].Transactions)
	assert.Len(t, groups[3].Transactions, 1)
}

func TestGroupByMonth_UnknownDateAfterUnparseableKeys(t *testing.T) {
	records := []models.FormattedTransaction{
		record(models.UnknownDate, "unknown"),
		record("Someday", "odd"),
		record("March 2024", "mar"),
	}

	keys := make([]string, 0, 3)
	for _, g := range GroupByMonth(records) {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"March 2024", "Someday", models.UnknownDate}, keys)
}

func TestGroupByMonth_OutOfRangeEpochs(t *testing.T) {
	f := utcFormatter(money.UnitSats)
	var records []models.FormattedTransaction
	for _, createdAt := range []models.CreatedAt{
		models.TextCreatedAt("garbage"),
		models.EpochCreatedAt(1 << 62),
		models.EpochCreatedAt(1710497400),
	} {
		monthKey, _ := f.FormatDate(createdAt)
		records = append(records, record(monthKey, ""))
	}

	groups := GroupByMonth(records)
	require.Len(t, groups, 2)
	assert.Equal(t, "March 2024", groups[0].Key)
	assert.Equal(t, models.UnknownDate, groups[1].Key)
	assert.Len(t, groups[1].Transactions, 2)
}

func TestGroupByMonth_PartitionsInput(t *testing.T) {
	records := []models.FormattedTransaction{
		record("May 2023", "a"),
		record("May 2023", "b"),
		record("June 2023", "c"),
	}

	total := 0
	for _, g := range GroupByMonth(records) {
		for _, tx := range g.Transactions {
			assert.Equal(t, g.Key, tx.MonthKey)
		}
		total += len(g.Transactions)
	}
	assert.Equal(t, len(records), total)
}

func TestGroupByMonth_Empty(t *testing.T) {
	assert.Empty(t, GroupByMonth(nil))
}
