package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wnt/blinkwatch/internal/graphql"
	"github.com/wnt/blinkwatch/internal/metrics"
	"github.com/wnt/blinkwatch/internal/models"
)

const (
	DefaultPageSize = 100
	DefaultMaxPages = 50
)

var (
	// ErrPaginationLimitExceeded is returned when the server still reports
	// more pages after MaxPages requests
	ErrPaginationLimitExceeded = errors.New("pagination limit exceeded")

	// ErrInvalidOptions is returned for a non-positive page size or page limit
	ErrInvalidOptions = errors.New("invalid pagination options")

	// ErrMissingEndCursor is returned when a page reports more results but
	// gives no cursor to continue from
	ErrMissingEndCursor = errors.New("page has next page but no end cursor")

	// ErrNoConnection is returned when the response has no transactions connection
	ErrNoConnection = errors.New("response has no transactions connection")
)

// FetchError aborts a history fetch. Partial results are discarded.
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch transactions page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options bounds a history fetch
type Options struct {
	PageSize int
	MaxPages int
}

func (o Options) validate() error {
	if o.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidOptions, o.PageSize)
	}
	if o.MaxPages <= 0 {
		return fmt.Errorf("%w: max pages must be positive, got %d", ErrInvalidOptions, o.MaxPages)
	}
	return nil
}

// Paginator walks the transactions connection page by page. Requests are
// strictly sequential since each page depends on the previous cursor.
type Paginator struct {
	exec   graphql.Executor
	opts   Options
	logger zerolog.Logger
}

// NewPaginator creates a paginator over exec
func NewPaginator(exec graphql.Executor, opts Options, logger zerolog.Logger) *Paginator {
	return &Paginator{
		exec:   exec,
		opts:   opts,
		logger: logger.With().Str("component", "paginator").Logger(),
	}
}

type pageResponse struct {
	Me *struct {
		DefaultAccount *struct {
			Transactions *models.TransactionPage `json:"transactions"`
		} `json:"defaultAccount"`
	} `json:"me"`
}

// FetchAll accumulates every page in server order. It fails with
// ErrPaginationLimitExceeded after MaxPages calls if the server still reports
// more, and with *FetchError on any page failure; in both cases no edges are
// returned.
func (p *Paginator) FetchAll(ctx context.Context) ([]models.TransactionEdge, error) {
	if err := p.opts.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	var all []models.TransactionEdge
	var after *string
	hasNext := true
	pages := 0

	for hasNext {
		if pages == p.opts.MaxPages {
			p.logger.Error().
				Int("max_pages", p.opts.MaxPages).
				Int("edges", len(all)).
				Msg("Pagination limit exceeded, discarding partial history")
			return nil, fmt.Errorf("%w: server still reports more after %d pages", ErrPaginationLimitExceeded, pages)
		}

		if pages > 0 {
			if err := ctx.Err(); err != nil {
				return nil, &FetchError{Page: pages + 1, Err: err}
			}
		}

		page, err := p.fetchPage(ctx, p.opts.PageSize, after)
		pages++
		if err != nil {
			p.logger.Warn().
				Err(err).
				Int("page", pages).
				Int("discarded_edges", len(all)).
				Msg("Transaction page failed, discarding partial history")
			return nil, &FetchError{Page: pages, Err: err}
		}

		all = append(all, page.Edges...)
		hasNext = page.PageInfo.HasNextPage
		after = page.PageInfo.EndCursor

		if hasNext && after == nil {
			return nil, &FetchError{Page: pages, Err: ErrMissingEndCursor}
		}
	}

	p.logger.Debug().
		Int("pages", pages).
		Int("edges", len(all)).
		Dur("duration", time.Since(start)).
		Msg("Fetched full transaction history")

	return all, nil
}

// FetchRecent requests exactly one page of n transactions and ignores
// hasNextPage. The result holds at most n most-recent transactions and
// carries no completeness guarantee.
func (p *Paginator) FetchRecent(ctx context.Context, n int) ([]models.TransactionEdge, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidOptions, n)
	}

	page, err := p.fetchPage(ctx, n, nil)
	if err != nil {
		return nil, &FetchError{Page: 1, Err: err}
	}
	return page.Edges, nil
}

// fetchPage performs one GetTransactionsPage call
func (p *Paginator) fetchPage(ctx context.Context, first int, after *string) (*models.TransactionPage, error) {
	vars := map[string]any{"first": first}
	if after != nil {
		vars["after"] = *after
	}

	data, err := p.exec.Execute(ctx, PageQuery, vars)
	if err != nil {
		return nil, err
	}

	var resp pageResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transactions page: %w", err)
	}
	if resp.Me == nil || resp.Me.DefaultAccount == nil || resp.Me.DefaultAccount.Transactions == nil {
		return nil, ErrNoConnection
	}

	page := resp.Me.DefaultAccount.Transactions
	metrics.RecordTransactionPage()
	p.logger.Debug().
		Int("edges", len(page.Edges)).
		Bool("has_next_page", page.PageInfo.HasNextPage).
		Msg("Fetched transaction page")

	return page, nil
}

// FetchAll fetches the full history through exec without logging
func FetchAll(ctx context.Context, exec graphql.Executor, opts Options) ([]models.TransactionEdge, error) {
	return NewPaginator(exec, opts, zerolog.Nop()).FetchAll(ctx)
}

// FetchRecent fetches one page of n transactions through exec without logging
func FetchRecent(ctx context.Context, exec graphql.Executor, n int) ([]models.TransactionEdge, error) {
	return NewPaginator(exec, Options{PageSize: n, MaxPages: 1}, zerolog.Nop()).FetchRecent(ctx, n)
}
