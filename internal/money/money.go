package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wnt/blinkwatch/internal/models"
)

const (
	// BTCDecimals is the number of satoshi digits in one BTC
	BTCDecimals = 8
	// USDDecimals is the number of cent digits in one dollar
	USDDecimals = 2
)

// DisplayUnit selects how BTC amounts are shown
type DisplayUnit string

const (
	UnitSats DisplayUnit = "sats"
	UnitBTC  DisplayUnit = "btc"
)

// ParseDisplayUnit accepts "sats"/"sat"/"satoshis" and "btc", case-insensitive
func ParseDisplayUnit(s string) (DisplayUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sats", "sat", "satoshis":
		return UnitSats, nil
	case "btc":
		return UnitBTC, nil
	}
	return "", fmt.Errorf("invalid display unit %q (must be one of: sats, btc)", s)
}

// FormatSats renders satoshis as a thousands-grouped integer, e.g. "1,234 sats"
func FormatSats(sats int64) string {
	return GroupThousands(sats) + " sats"
}

// FormatBTC renders satoshis as BTC with exactly 8 decimals, e.g. "0.00001234 BTC"
func FormatBTC(sats int64) string {
	return FixedDecimal(sats, BTCDecimals) + " BTC"
}

// FormatUSD renders cents as dollars with exactly 2 decimals, e.g. "$12.34"
func FormatUSD(cents int64) string {
	s := FixedDecimal(cents, USDDecimals)
	if strings.HasPrefix(s, "-") {
		return "-$" + s[1:]
	}
	return "$" + s
}

// FormatMinor renders an amount given in minor units of currency. BTC follows
// unit; unknown currencies print the raw integer followed by the code.
func FormatMinor(amount int64, currency models.Currency, unit DisplayUnit) string {
	switch currency {
	case models.CurrencyBTC:
		if unit == UnitBTC {
			return FormatBTC(amount)
		}
		return FormatSats(amount)
	case models.CurrencyUSD:
		return FormatUSD(amount)
	}
	return fmt.Sprintf("%d %s", amount, currency)
}

// FixedDecimal divides amount by 10^decimals and always prints exactly
// decimals fractional digits: 150000000, 8 → "1.50000000"
func FixedDecimal(amount int64, decimals int) string {
	if decimals <= 0 {
		return decimal.NewFromInt(amount).String()
	}
	return decimal.New(amount, -int32(decimals)).StringFixed(int32(decimals))
}

// GroupThousands inserts commas every three digits: 1234567 → "1,234,567"
func GroupThousands(n int64) string {
	str := decimal.NewFromInt(n).Abs().String()

	var b strings.Builder
	lead := len(str) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(str[:lead])
	for i := lead; i < len(str); i += 3 {
		b.WriteByte(',')
		b.WriteString(str[i : i+3])
	}
	return sign(n) + b.String()
}

func sign(n int64) string {
	if n < 0 {
		return "-"
	}
	return ""
}
