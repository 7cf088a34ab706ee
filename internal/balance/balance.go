package balance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wnt/blinkwatch/internal/graphql"
	"github.com/wnt/blinkwatch/internal/models"
	"github.com/wnt/blinkwatch/internal/money"
)

// WalletsQuery is the GetWalletBalances operation
const WalletsQuery = `query GetWalletBalances {
  me {
    defaultAccount {
      wallets {
        id
        walletCurrency
        balance
      }
    }
  }
}`

// Missing is shown in place of an absent balance
const Missing = "-"

// ErrNoDefaultAccount is returned when the response carries no account
var ErrNoDefaultAccount = errors.New("response has no default account")

type walletsResponse struct {
	Me *struct {
		DefaultAccount *struct {
			Wallets []models.Wallet `json:"wallets"`
		} `json:"defaultAccount"`
	} `json:"me"`
}

// Fetch retrieves the wallets of the executor's default account
func Fetch(ctx context.Context, exec graphql.Executor) ([]models.Wallet, error) {
	data, err := exec.Execute(ctx, WalletsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wallet balances: %w", err)
	}

	var resp walletsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet balances: %w", err)
	}
	if resp.Me == nil || resp.Me.DefaultAccount == nil {
		return nil, ErrNoDefaultAccount
	}

	return resp.Me.DefaultAccount.Wallets, nil
}

// Normalize selects the first BTC and the first USD wallet. A currency
// without a wallet stays nil; that is not an error.
func Normalize(wallets []models.Wallet) models.Balances {
	var b models.Balances
	for _, w := range wallets {
		switch w.Currency {
		case models.CurrencyBTC:
			if b.BTC == nil {
				sats := w.Balance
				b.BTC = &sats
			}
		case models.CurrencyUSD:
			if b.USD == nil {
				cents := w.Balance
				b.USD = &cents
			}
		}
	}
	return b
}

// FormatBTCBalance renders satoshis as "1,234 sats" or "0.00001234 BTC"
func FormatBTCBalance(sats int64, unit money.DisplayUnit) string {
	return money.FormatMinor(sats, models.CurrencyBTC, unit)
}

// FormatUSDBalance renders cents as "$12.34"
func FormatUSDBalance(cents int64) string {
	return money.FormatUSD(cents)
}

// FormatBalances renders both balances, using Missing for absent ones
func FormatBalances(b models.Balances, unit money.DisplayUnit) (btc, usd string) {
	btc, usd = Missing, Missing
	if b.BTC != nil {
		btc = FormatBTCBalance(*b.BTC, unit)
	}
	if b.USD != nil {
		usd = FormatUSDBalance(*b.USD)
	}
	return btc, usd
}
