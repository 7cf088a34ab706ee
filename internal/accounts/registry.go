package accounts

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wnt/blinkwatch/internal/config"
	"github.com/wnt/blinkwatch/internal/graphql"
	"github.com/wnt/blinkwatch/internal/metrics"
)

const retryDelay = 500 * time.Millisecond

var (
	ErrNoAccounts        = errors.New("no accounts configured")
	ErrDuplicateAccount  = errors.New("duplicate account name")
	ErrUnknownAccount    = errors.New("unknown account")
	ErrMissingCredential = errors.New("account has no API key")
)

// ExecutorFactory builds the executor for one credential
type ExecutorFactory func(cred config.Account) graphql.Executor

// HTTPFactory returns a factory creating one graphql.Client per credential
func HTTPFactory(endpoint string, logger zerolog.Logger, options ...graphql.Option) ExecutorFactory {
	return func(cred config.Account) graphql.Executor {
		return graphql.NewClient(endpoint, cred.APIKey, logger.With().Str("account", cred.Name).Logger(), options...)
	}
}

// Account is one registered account with its own executor and health state.
// The API key is held only by the executor.
type Account struct {
	Name     string
	executor graphql.Executor

	healthy     bool
	lastError   error
	lastChecked time.Time
	mutex       sync.RWMutex
}

// Executor returns the account's GraphQL executor
func (a *Account) Executor() graphql.Executor {
	return a.executor
}

func (a *Account) String() string {
	return a.Name
}

// Status is a point-in-time view of an account's health
type Status struct {
	Name        string    `json:"name"`
	Healthy     bool      `json:"healthy"`
	LastError   string    `json:"lastError,omitempty"`
	LastChecked time.Time `json:"lastChecked"`
}

// Registry holds the configured accounts in configuration order
type Registry struct {
	accounts []*Account
	byName   map[string]*Account
	logger   zerolog.Logger
}

// New creates a registry from credentials
func New(creds []config.Account, factory ExecutorFactory, logger zerolog.Logger) (*Registry, error) {
	if len(creds) == 0 {
		return nil, ErrNoAccounts
	}

	r := &Registry{
		accounts: make([]*Account, 0, len(creds)),
		byName:   make(map[string]*Account, len(creds)),
		logger:   logger.With().Str("component", "accounts").Logger(),
	}

	for _, cred := range creds {
		if cred.APIKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingCredential, cred.Name)
		}
		if _, exists := r.byName[cred.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAccount, cred.Name)
		}

		account := &Account{
			Name:     cred.Name,
			executor: factory(cred),
			healthy:  true,
		}
		r.accounts = append(r.accounts, account)
		r.byName[cred.Name] = account

		metrics.SetAccountHealth(cred.Name, true)
	}

	r.logger.Info().Strs("accounts", r.Names()).Msg("Registered accounts")

	return r, nil
}

// FromConfig creates a registry of HTTP executors using the configured
// endpoint, timeout, retry and rate limit settings
func FromConfig(cfg config.Config, logger zerolog.Logger) (*Registry, error) {
	factory := HTTPFactory(cfg.APIURL, logger,
		graphql.WithTimeout(cfg.HTTPTimeout),
		graphql.WithRetries(cfg.HTTPMaxRetries, retryDelay),
		graphql.WithRateLimit(cfg.RequestsPerSecond, 5),
	)
	return New(cfg.Accounts, factory, logger)
}

// Get returns the named account
func (r *Registry) Get(name string) (*Account, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// All returns the accounts in configuration order
func (r *Registry) All() []*Account {
	out := make([]*Account, len(r.accounts))
	copy(out, r.accounts)
	return out
}

// Names returns the account names in configuration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.accounts))
	for _, a := range r.accounts {
		names = append(names, a.Name)
	}
	return names
}

// Len returns the number of accounts
func (r *Registry) Len() int {
	return len(r.accounts)
}

// Only returns a registry restricted to the named account
func (r *Registry) Only(name string) (*Registry, error) {
	a, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	return &Registry{
		accounts: []*Account{a},
		byName:   map[string]*Account{name: a},
		logger:   r.logger,
	}, nil
}

// MarkHealthy records a successful cycle for the named account
func (r *Registry) MarkHealthy(name string) {
	a, ok := r.byName[name]
	if !ok {
		return
	}

	a.mutex.Lock()
	recovered := !a.healthy
	a.healthy = true
	a.lastError = nil
	a.lastChecked = time.Now()
	a.mutex.Unlock()

	metrics.SetAccountHealth(name, true)
	if recovered {
		r.logger.Info().Str("account", name).Msg("Account recovered")
	}
}

// MarkUnhealthy records a failed cycle for the named account
func (r *Registry) MarkUnhealthy(name string, err error) {
	a, ok := r.byName[name]
	if !ok {
		return
	}

	a.mutex.Lock()
	a.healthy = false
	a.lastError = err
	a.lastChecked = time.Now()
	a.mutex.Unlock()

	metrics.SetAccountHealth(name, false)
	r.logger.Warn().
		Err(err).
		Str("account", name).
		Str("kind", graphql.KindOf(err).String()).
		Msg("Marked account as unhealthy")
}

// HealthyCount returns the number of healthy accounts
func (r *Registry) HealthyCount() int {
	count := 0
	for _, a := range r.accounts {
		a.mutex.RLock()
		if a.healthy {
			count++
		}
		a.mutex.RUnlock()
	}
	return count
}

// Stats returns the health of every account
func (r *Registry) Stats() []Status {
	stats := make([]Status, 0, len(r.accounts))
	for _, a := range r.accounts {
		stats = append(stats, a.Status())
	}
	return stats
}

// Status returns the account's current health
func (a *Account) Status() Status {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	s := Status{
		Name:        a.Name,
		Healthy:     a.healthy,
		LastChecked: a.lastChecked,
	}
	if a.lastError != nil {
		s.LastError = a.lastError.Error()
	}
	return s
}
