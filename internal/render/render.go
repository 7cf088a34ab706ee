package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/wnt/blinkwatch/internal/balance"
	"github.com/wnt/blinkwatch/internal/dashboard"
	"github.com/wnt/blinkwatch/internal/money"
	"github.com/wnt/blinkwatch/internal/transactions"
)

// NoTransactions is printed when a loaded history is empty
const NoTransactions = "No transactions found."

// Renderer writes snapshots as plain text
type Renderer struct {
	Unit     money.DisplayUnit
	Location *time.Location
}

// Render writes one snapshot: header, balances, status lines, then the
// history grouped by month
func (r Renderer) Render(w io.Writer, snap *dashboard.Snapshot) error {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	fmt.Fprintf(&b, "== %s == updated %s\n", snap.Account, snap.TakenAt.In(loc).Format(transactions.DisplayDateLayout))

	btc, usd := balance.FormatBalances(snap.Balances, r.Unit)
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "BTC Wallet\t%s\n", btc)
	fmt.Fprintf(tw, "USD Wallet\t%s\n", usd)
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to render balances: %w", err)
	}

	if snap.BalanceStatus != "" {
		fmt.Fprintf(&b, "! %s\n", snap.BalanceStatus)
	}
	if snap.HistoryStatus != "" {
		fmt.Fprintf(&b, "! %s\n", snap.HistoryStatus)
	}

	if snap.HistoryLoaded {
		if err := r.renderHistory(&b, snap); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r Renderer) renderHistory(b *strings.Builder, snap *dashboard.Snapshot) error {
	b.WriteString("\n")
	if snap.TransactionCount == 0 {
		b.WriteString(NoTransactions + "\n")
		return nil
	}

	scope := "all"
	if !snap.Complete {
		scope = "most recent"
	}
	fmt.Fprintf(b, "Transactions (%d, %s)\n", snap.TransactionCount, scope)

	for _, group := range snap.Groups {
		fmt.Fprintf(b, "\n%s\n", group.Key)

		tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  Date\tType\tAmount\tStatus\tHash\tMemo")
		for _, tx := range group.Transactions {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
				tx.DisplayDate, tx.Type, tx.SignedAmount, tx.Status, tx.Hash, oneLine(tx.Memo))
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("failed to render %s: %w", group.Key, err)
		}
	}
	return nil
}

// oneLine keeps multi-line memos from breaking the table
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Sink renders every snapshot to a writer. Writes from concurrent pollers
// are serialized so snapshots never interleave.
type Sink struct {
	renderer Renderer
	mu       sync.Mutex
	w        io.Writer
}

// NewSink creates a rendering sink
func NewSink(w io.Writer, renderer Renderer) *Sink {
	return &Sink{renderer: renderer, w: w}
}

func (s *Sink) Name() string {
	return "render"
}

func (s *Sink) Publish(ctx context.Context, snap *dashboard.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.renderer.Render(s.w, snap); err != nil {
		return err
	}
	_, err := io.WriteString(s.w, "\n")
	return err
}
