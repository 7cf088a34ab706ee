package models

import (
	"time"

	"gorm.io/gorm"
)

// Currency is a wallet or settlement currency code as reported by the API
type Currency string

const (
	CurrencyBTC Currency = "BTC"
	CurrencyUSD Currency = "USD"
)

// Wallet is one per-currency wallet of an account. Balance is in the
// currency's minor unit (satoshis for BTC, cents for USD).
type Wallet struct {
	ID       string   `json:"id"`
	Currency Currency `json:"walletCurrency"`
	Balance  int64    `json:"balance"`
}

// Balances holds the normalized BTC and USD balances of an account.
// A nil field means the account has no wallet in that currency.
type Balances struct {
	BTC *int64 `json:"btc"`
	USD *int64 `json:"usd"`
}

// BalanceRecord is one persisted balance observation
type BalanceRecord struct {
	gorm.Model
	Account    string    `gorm:"size:64;index;not null"`
	BTCSats    *int64
	USDCents   *int64
	CycleID    string    `gorm:"size:36;uniqueIndex"`
	RecordedAt time.Time `gorm:"index"`
}
