package dashboard

import (
	"errors"
	"time"

	"github.com/wnt/blinkwatch/internal/graphql"
	"github.com/wnt/blinkwatch/internal/models"
)

// Cycle outcomes as recorded in metrics
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Snapshot is the output of one refresh cycle for one account
type Snapshot struct {
	Account          string              `json:"account"`
	CycleID          string              `json:"cycleId"`
	TakenAt          time.Time           `json:"takenAt"`
	Balances         models.Balances     `json:"balances"`
	Groups           []models.MonthGroup `json:"groups"`
	TransactionCount int                 `json:"transactionCount"`

	// Complete is true only when the full history was fetched
	Complete bool `json:"complete"`

	// HistoryLoaded is false when history was disabled or failed
	HistoryLoaded bool `json:"historyLoaded"`

	BalanceErr error `json:"-"`
	HistoryErr error `json:"-"`

	// Status lines derived from the errors above
	BalanceStatus string `json:"balanceStatus,omitempty"`
	HistoryStatus string `json:"historyStatus,omitempty"`
}

// Status classifies the cycle: success when nothing failed, failed when
// nothing was fetched, partial otherwise. Snapshots decoded from JSON carry
// only the status lines, which count as failures too.
func (s *Snapshot) Status() string {
	balanceFailed := s.BalanceErr != nil || s.BalanceStatus != ""
	historyFailed := s.HistoryErr != nil || s.HistoryStatus != ""

	switch {
	case !balanceFailed && !historyFailed:
		return StatusSuccess
	case balanceFailed && (historyFailed || !s.HistoryLoaded):
		return StatusFailed
	}
	return StatusPartial
}

// Err joins the balance and history errors
func (s *Snapshot) Err() error {
	return errors.Join(s.BalanceErr, s.HistoryErr)
}

func (s *Snapshot) setBalanceErr(err error) {
	s.BalanceErr = err
	s.BalanceStatus = graphql.StatusText(err)
}

func (s *Snapshot) setHistoryErr(err error) {
	s.HistoryErr = err
	s.HistoryStatus = graphql.StatusText(err)
}
