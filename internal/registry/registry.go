// Package registry is the connection registry spec.md §4.6 names: for
// each of {Strategy, Exchange, Frame, Risk, Sizing} a memoised
// factory keyed by name alone, constructing each client at most once
// per process lifetime and injecting its collaborators.
package registry

import (
	"fmt"
	"sync"

	"github.com/aristath/quanttrader/internal/events"
	"github.com/aristath/quanttrader/internal/exchange"
	"github.com/aristath/quanttrader/internal/frame"
	"github.com/aristath/quanttrader/internal/persist"
	"github.com/aristath/quanttrader/internal/risk"
	"github.com/aristath/quanttrader/internal/schema"
	"github.com/aristath/quanttrader/internal/sizing"
	"github.com/aristath/quanttrader/internal/strategy"
	"github.com/rs/zerolog"
)

// Registry owns every constructed client for process lifetime, built
// lazily and cached by name.
type Registry struct {
	schema   *schema.Service
	backend  persist.Backend
	events   *events.Manager
	riskBase bool // whether risk persistence is enabled
	log      zerolog.Logger

	mu         sync.Mutex
	exchanges  map[string]exchange.Adapter
	frames     map[string]frame.Client
	risks      map[string]*risk.Client
	sizings    map[string]sizing.Client
	strategies map[string]*strategy.Client
}

// New constructs a registry. backend is used for every strategy's
// SignalStore/ScheduleStore and every risk client's optional RiskStore;
// persistRisk toggles whether risk state is durable across restarts.
func New(schemaSvc *schema.Service, backend persist.Backend, ev *events.Manager, persistRisk bool, log zerolog.Logger) *Registry {
	return &Registry{
		schema:     schemaSvc,
		backend:    backend,
		events:     ev,
		riskBase:   persistRisk,
		log:        log.With().Str("component", "registry").Logger(),
		exchanges:  make(map[string]exchange.Adapter),
		frames:     make(map[string]frame.Client),
		risks:      make(map[string]*risk.Client),
		sizings:    make(map[string]sizing.Client),
		strategies: make(map[string]*strategy.Client),
	}
}

func (r *Registry) Exchange(name string) (exchange.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ex, ok := r.exchanges[name]; ok {
		return ex, nil
	}
	sc, ok := r.schema.Exchange(name)
	if !ok {
		return nil, fmt.Errorf("registry: no exchange schema registered for %q", name)
	}
	r.exchanges[name] = sc.Adapter
	return sc.Adapter, nil
}

func (r *Registry) Frame(name string) (frame.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fr, ok := r.frames[name]; ok {
		return fr, nil
	}
	sc, ok := r.schema.Frame(name)
	if !ok {
		return nil, fmt.Errorf("registry: no frame schema registered for %q", name)
	}
	r.frames[name] = sc.Frame
	return sc.Frame, nil
}

func (r *Registry) Sizing(name string) (sizing.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sz, ok := r.sizings[name]; ok {
		return sz, nil
	}
	sc, ok := r.schema.Sizing(name)
	if !ok {
		return nil, fmt.Errorf("registry: no sizing schema registered for %q", name)
	}
	r.sizings[name] = sc.Sizing
	return sc.Sizing, nil
}

// Risk returns the no-op risk client when name is empty (a strategy
// with no RiskSchema attached, spec.md §4.6).
func (r *Registry) Risk(name string, backtest bool) (*risk.Client, error) {
	if name == "" {
		return risk.NoOp(), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rk, ok := r.risks[name]; ok {
		return rk, nil
	}
	sc, ok := r.schema.Risk(name)
	if !ok {
		return nil, fmt.Errorf("registry: no risk schema registered for %q", name)
	}

	var store *persist.RiskStore
	if r.riskBase && r.backend != nil {
		store = persist.NewRiskStore(r.backend, r.log)
	}
	rk := risk.New(name, backtest, store, sc.Validations, r.events, r.log)
	r.risks[name] = rk
	return rk, nil
}

// Strategy constructs (or returns the cached) strategy client for
// name, injecting its configured exchange and risk collaborators plus
// fresh SignalStore/ScheduleStore instances over the shared backend.
func (r *Registry) Strategy(name string, backtest bool) (*strategy.Client, error) {
	r.mu.Lock()
	if st, ok := r.strategies[name]; ok {
		r.mu.Unlock()
		return st, nil
	}
	r.mu.Unlock()

	sc, ok := r.schema.Strategy(name)
	if !ok {
		return nil, fmt.Errorf("registry: no strategy schema registered for %q", name)
	}

	ex, err := r.Exchange(sc.ExchangeName)
	if err != nil {
		return nil, err
	}
	rk, err := r.Risk(sc.RiskName, backtest)
	if err != nil {
		return nil, err
	}

	signals := persist.NewSignalStore(r.backend, r.log, nil)
	scheduleStore := persist.NewScheduleStore(r.backend, r.log, nil)
	st := strategy.New(sc, ex, rk, signals, scheduleStore, r.events, r.log)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.strategies[name]; ok {
		return existing, nil
	}
	r.strategies[name] = st
	return st, nil
}
