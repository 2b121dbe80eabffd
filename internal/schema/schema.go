// Package schema is the registration surface named in spec.md §6:
// addStrategy/addExchange/addFrame/addRisk/addSizing. Each call
// validates the schema and commits it to an in-memory registry; the
// last registration for a name wins before any client is first
// constructed (no idempotence guarantee, matching spec.md §6 exactly).
package schema

import (
	"fmt"
	"sync"

	"github.com/aristath/quanttrader/internal/exchange"
	"github.com/aristath/quanttrader/internal/frame"
	"github.com/aristath/quanttrader/internal/risk"
	"github.com/aristath/quanttrader/internal/sizing"
	"github.com/aristath/quanttrader/internal/strategy"
)

// ExchangeSchema binds exchangeName to a concrete Adapter.
type ExchangeSchema struct {
	ExchangeName string
	Adapter      exchange.Adapter
}

// FrameSchema binds frameName to a concrete frame.Client.
type FrameSchema struct {
	FrameName string
	Frame     frame.Client
}

// RiskSchema binds riskName to its ordered list of validations.
type RiskSchema struct {
	RiskName    string
	Validations []risk.Validation
}

// SizingSchema binds sizingName to a concrete sizing.Client.
type SizingSchema struct {
	SizingName string
	Sizing     sizing.Client
}

// Service is the synchronous schema registry shared by the whole
// process. All registration happens before the connection registry
// constructs its first client; no synchronization is needed beyond the
// mutex protecting the maps themselves (registration errors are
// returned synchronously, never deferred to first use).
type Service struct {
	mu         sync.Mutex
	strategies map[string]strategy.Schema
	exchanges  map[string]ExchangeSchema
	frames     map[string]FrameSchema
	risks      map[string]RiskSchema
	sizings    map[string]SizingSchema
}

func NewService() *Service {
	return &Service{
		strategies: make(map[string]strategy.Schema),
		exchanges:  make(map[string]ExchangeSchema),
		frames:     make(map[string]FrameSchema),
		risks:      make(map[string]RiskSchema),
		sizings:    make(map[string]SizingSchema),
	}
}

// SchemaError reports a registration failure: the bad schema never
// reaches the registry, so the caller learns about it synchronously.
type SchemaError struct {
	Kind string
	Name string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: invalid %s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (s *Service) AddStrategy(sc strategy.Schema) error {
	if sc.StrategyName == "" {
		return &SchemaError{Kind: "strategy", Name: sc.StrategyName, Err: fmt.Errorf("strategyName is required")}
	}
	if sc.ExchangeName == "" {
		return &SchemaError{Kind: "strategy", Name: sc.StrategyName, Err: fmt.Errorf("exchangeName is required")}
	}
	if sc.GetSignal == nil {
		return &SchemaError{Kind: "strategy", Name: sc.StrategyName, Err: fmt.Errorf("getSignal is required")}
	}
	if sc.IntervalMinutes <= 0 {
		return &SchemaError{Kind: "strategy", Name: sc.StrategyName, Err: fmt.Errorf("interval must be positive")}
	}
	s.mu.Lock()
	s.strategies[sc.StrategyName] = sc
	s.mu.Unlock()
	return nil
}

func (s *Service) AddExchange(sc ExchangeSchema) error {
	if sc.ExchangeName == "" {
		return &SchemaError{Kind: "exchange", Name: sc.ExchangeName, Err: fmt.Errorf("exchangeName is required")}
	}
	if sc.Adapter == nil {
		return &SchemaError{Kind: "exchange", Name: sc.ExchangeName, Err: fmt.Errorf("adapter is required")}
	}
	s.mu.Lock()
	s.exchanges[sc.ExchangeName] = sc
	s.mu.Unlock()
	return nil
}

func (s *Service) AddFrame(sc FrameSchema) error {
	if sc.FrameName == "" {
		return &SchemaError{Kind: "frame", Name: sc.FrameName, Err: fmt.Errorf("frameName is required")}
	}
	if sc.Frame == nil {
		return &SchemaError{Kind: "frame", Name: sc.FrameName, Err: fmt.Errorf("frame client is required")}
	}
	s.mu.Lock()
	s.frames[sc.FrameName] = sc
	s.mu.Unlock()
	return nil
}

func (s *Service) AddRisk(sc RiskSchema) error {
	if sc.RiskName == "" {
		return &SchemaError{Kind: "risk", Name: sc.RiskName, Err: fmt.Errorf("riskName is required")}
	}
	s.mu.Lock()
	s.risks[sc.RiskName] = sc
	s.mu.Unlock()
	return nil
}

func (s *Service) AddSizing(sc SizingSchema) error {
	if sc.SizingName == "" {
		return &SchemaError{Kind: "sizing", Name: sc.SizingName, Err: fmt.Errorf("sizingName is required")}
	}
	if sc.Sizing == nil {
		return &SchemaError{Kind: "sizing", Name: sc.SizingName, Err: fmt.Errorf("sizing client is required")}
	}
	s.mu.Lock()
	s.sizings[sc.SizingName] = sc
	s.mu.Unlock()
	return nil
}

func (s *Service) Strategy(name string) (strategy.Schema, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.strategies[name]
	return sc, ok
}

func (s *Service) Exchange(name string) (ExchangeSchema, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.exchanges[name]
	return sc, ok
}

func (s *Service) Frame(name string) (FrameSchema, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.frames[name]
	return sc, ok
}

func (s *Service) Risk(name string) (RiskSchema, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.risks[name]
	return sc, ok
}

func (s *Service) Sizing(name string) (SizingSchema, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.sizings[name]
	return sc, ok
}
