// Package execctx carries the two ambient contexts the spec requires to
// be retrievable from any core operation without parameter threading:
// the method context (which strategy/exchange/frame a call concerns)
// and the execution context (symbol, current timestamp, mode).
//
// Design Notes §9 explicitly flags the "sentinel/global ambient state"
// approach as an anti-pattern and recommends threading the contexts
// explicitly through operation arguments or a task-local value. Go's
// context.Context IS that task-local value: it is immutable, always
// derived (never mutated in place), and a goroutine that never calls
// WithMethodContext/WithExecContext simply never sees one — which is
// exactly "scoped entry/exit with guaranteed restoration on any exit
// path" without any explicit restore step, and exactly "concurrent
// executions must not leak contexts" since every goroutine carries its
// own ctx value.
package execctx

import "context"

type methodCtxKey struct{}
type execCtxKey struct{}

// MethodContext names which registered strategy/exchange/frame a call
// concerns.
type MethodContext struct {
	StrategyName string
	ExchangeName string
	FrameName    string
}

// ExecContext carries the symbol, timestamp, and mode (backtest vs
// live) a call is executing under.
type ExecContext struct {
	Symbol   string
	When     int64
	Backtest bool
}

// WithMethodContext returns a derived context carrying mc.
func WithMethodContext(ctx context.Context, mc MethodContext) context.Context {
	return context.WithValue(ctx, methodCtxKey{}, mc)
}

// MethodContextFrom returns the method context carried by ctx, if any.
// The boolean result is the spec's hasContext() probe; when false, mc
// is the zero value, i.e. the "empty view".
func MethodContextFrom(ctx context.Context) (mc MethodContext, ok bool) {
	mc, ok = ctx.Value(methodCtxKey{}).(MethodContext)
	return
}

// WithExecContext returns a derived context carrying ec.
func WithExecContext(ctx context.Context, ec ExecContext) context.Context {
	return context.WithValue(ctx, execCtxKey{}, ec)
}

// ExecContextFrom returns the execution context carried by ctx, if any.
func ExecContextFrom(ctx context.Context) (ec ExecContext, ok bool) {
	ec, ok = ctx.Value(execCtxKey{}).(ExecContext)
	return
}
