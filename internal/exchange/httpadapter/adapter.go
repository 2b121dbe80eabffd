// Package httpadapter is a reference exchange.Adapter backed by a
// generic REST candle/price API, grounded on polymarket-mm's
// resty-based exchange client (rate limiting omitted: a candle feed
// has none of a CLOB's order-placement rate sensitivity).
package httpadapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/quanttrader/internal/domain"
	"github.com/aristath/quanttrader/internal/exchange"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Config configures an Adapter instance.
type Config struct {
	BaseURL        string
	PriceTick      decimal.Decimal // smallest price increment, e.g. 0.01
	QuantityLot    decimal.Decimal // smallest order size increment
	FeeRatePerSide decimal.Decimal
	Timeout        time.Duration
}

// Adapter is a REST-backed exchange.Adapter.
type Adapter struct {
	http *resty.Client
	cfg  Config
}

// New builds an Adapter for a candle/price API at cfg.BaseURL.
func New(cfg Config) *Adapter {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})
	return &Adapter{http: client, cfg: cfg}
}

type candleDTO struct {
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	OpenTime int64           `json:"openTime"`
}

func (a *Adapter) GetCandles(ctx context.Context, symbol string, fromTs, toTs int64) ([]domain.Candle, error) {
	var result []candleDTO
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   fmt.Sprintf("%d", fromTs),
			"to":     fmt.Sprintf("%d", toTs),
		}).
		SetResult(&result).
		Get("/candles")
	if err != nil {
		return nil, fmt.Errorf("get candles for %s: %w", symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get candles for %s: status %d: %s", symbol, resp.StatusCode(), resp.String())
	}

	candles := make([]domain.Candle, len(result))
	for i, c := range result {
		candles[i] = domain.Candle{Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, OpenTime: c.OpenTime}
	}
	return candles, nil
}

func (a *Adapter) GetAveragePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var result struct {
		Price decimal.Decimal `json:"price"`
	}
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&result).
		Get("/price")
	if err != nil {
		return decimal.Zero, fmt.Errorf("get average price for %s: %w", symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return decimal.Zero, fmt.Errorf("get average price for %s: status %d: %s", symbol, resp.StatusCode(), resp.String())
	}
	return result.Price, nil
}

func (a *Adapter) FormatPrice(_ string, price decimal.Decimal) decimal.Decimal {
	tick := a.cfg.PriceTick
	if tick.IsZero() {
		return price
	}
	return price.DivRound(tick, 0).Mul(tick)
}

func (a *Adapter) FormatQuantity(_ string, quantity decimal.Decimal) decimal.Decimal {
	lot := a.cfg.QuantityLot
	if lot.IsZero() {
		return quantity
	}
	return quantity.DivRound(lot, 0).Mul(lot)
}

func (a *Adapter) FeeRate() decimal.Decimal { return a.cfg.FeeRatePerSide }

var _ exchange.Adapter = (*Adapter)(nil)
