package transactions

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/wnt/blinkwatch/internal/models"
	"github.com/wnt/blinkwatch/internal/money"
)

const (
	// MonthKeyLayout renders "March 2024"
	MonthKeyLayout = "January 2006"
	// DisplayDateLayout renders "Mar 15, 2024 10:30 AM"
	DisplayDateLayout = "Jan 02, 2006 03:04 PM"

	// NoValue replaces an absent hash or memo
	NoValue = "-"
)

// Offset-aware ISO-8601 forms, tried in order
var offsetLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04:05-0700",
}

// Offset-less forms, interpreted in the formatter's location
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Formatter maps raw transactions to display records. It is safe to copy
// and holds no state beyond the display preferences.
type Formatter struct {
	Unit     money.DisplayUnit
	Location *time.Location
}

// NewFormatter returns a formatter; a nil location means local time
func NewFormatter(unit money.DisplayUnit, loc *time.Location) Formatter {
	if loc == nil {
		loc = time.Local
	}
	return Formatter{Unit: unit, Location: loc}
}

// Format builds the display record of tx. It never fails; an unparseable
// date yields UnknownDate and the raw value.
func (f Formatter) Format(tx models.Transaction) models.FormattedTransaction {
	monthKey, displayDate := f.FormatDate(tx.CreatedAt)

	memo := NoValue
	if tx.Memo != nil && *tx.Memo != "" {
		memo = *tx.Memo
	}

	return models.FormattedTransaction{
		MonthKey:     monthKey,
		DisplayDate:  displayDate,
		Type:         Capitalize(string(tx.Direction)),
		SignedAmount: f.SignedAmount(tx),
		Status:       Capitalize(string(tx.Status)),
		Hash:         TransactionHash(tx.SettlementVia),
		Memo:         memo,
	}
}

// FormatAll formats every edge, preserving order
func (f Formatter) FormatAll(edges []models.TransactionEdge) []models.FormattedTransaction {
	out := make([]models.FormattedTransaction, 0, len(edges))
	for _, edge := range edges {
		out = append(out, f.Format(edge.Node))
	}
	return out
}

// SignedAmount prefixes the formatted amount with "+" for receives and "-"
// otherwise. The API may already sign the amount; only its magnitude is used.
func (f Formatter) SignedAmount(tx models.Transaction) string {
	sign := "-"
	if tx.Direction == models.DirectionReceive {
		sign = "+"
	}
	amount := money.FormatMinor(tx.SettlementAmount, tx.SettlementCurrency, f.Unit)
	return sign + strings.TrimPrefix(amount, "-")
}

// FormatDate returns the month key and display date of a createdAt value,
// or UnknownDate and the raw value when it cannot be parsed
func (f Formatter) FormatDate(createdAt models.CreatedAt) (monthKey, displayDate string) {
	t, ok := f.ParseCreatedAt(createdAt)
	if !ok {
		return models.UnknownDate, createdAt.String()
	}
	return t.Format(MonthKeyLayout), t.Format(DisplayDateLayout)
}

// ParseCreatedAt accepts integer epoch seconds or an ISO-8601 string. Epoch
// values and offset-less strings are placed in the formatter's location;
// strings with an offset keep it. Times outside years 1..9999 are rejected.
func (f Formatter) ParseCreatedAt(createdAt models.CreatedAt) (time.Time, bool) {
	t, ok := f.parseCreatedAt(createdAt)
	if !ok || t.Year() < minYear || t.Year() > maxYear {
		return time.Time{}, false
	}
	return t, true
}

const (
	minYear = 1
	maxYear = 9999
)

func (f Formatter) parseCreatedAt(createdAt models.CreatedAt) (time.Time, bool) {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}

	raw := strings.TrimSpace(string(createdAt.Raw()))
	if raw == "" || raw == "null" {
		return time.Time{}, false
	}

	if raw[0] != '"' {
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(seconds, 0).In(loc), true
	}

	return parseISO(createdAt.String(), loc)
}

func parseISO(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "+00:00"
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TransactionHash identifies how a transaction settled: the on-chain hash,
// the lightning payment secret, "Internal-<wallet id>" for intra-ledger
// transfers, or NoValue.
func TransactionHash(via models.SettlementVia) string {
	switch c := via.Channel.(type) {
	case models.SettlementOnChain:
		return orNoValue(c.TransactionHash)
	case models.SettlementLn:
		// paymentSecret rather than preImage matches what the dashboard has
		// always shown. preImage may be the intended field; unconfirmed.
		return orNoValue(c.PaymentSecret)
	case models.SettlementIntraLedger:
		return "Internal-" + c.CounterPartyWalletID
	}
	return NoValue
}

// Capitalize upper-cases the first letter and lower-cases the rest
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(r)) + lower[size:]
}

func orNoValue(s string) string {
	if s == "" {
		return NoValue
	}
	return s
}
