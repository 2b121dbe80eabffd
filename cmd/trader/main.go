// Command trader is the engine's process entry point: it wires
// configuration, persistence, the event bus, an example strategy
// registration, and dispatches to a backtest run or a live run
// depending on flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/quanttrader/internal/config"
	"github.com/aristath/quanttrader/internal/domain"
	"github.com/aristath/quanttrader/internal/driver"
	"github.com/aristath/quanttrader/internal/events"
	"github.com/aristath/quanttrader/internal/exchange/httpadapter"
	"github.com/aristath/quanttrader/internal/frame"
	"github.com/aristath/quanttrader/internal/persist"
	"github.com/aristath/quanttrader/internal/registry"
	"github.com/aristath/quanttrader/internal/reliability"
	"github.com/aristath/quanttrader/internal/risk"
	"github.com/aristath/quanttrader/internal/schema"
	"github.com/aristath/quanttrader/internal/server"
	"github.com/aristath/quanttrader/internal/sizing"
	"github.com/aristath/quanttrader/internal/strategy"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/quanttrader/pkg/logger"
)

func main() {
	mode := flag.String("mode", "live", "run mode: backtest|live")
	symbol := flag.String("symbol", "BTC-USD", "symbol to trade")
	strategyName := flag.String("strategy", "trend-follow", "registered strategy name")
	windowStart := flag.Int64("window-start", 0, "backtest window start, epoch ms")
	windowEnd := flag.Int64("window-end", 0, "backtest window end, epoch ms")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config: ", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)
	log.Info().Str("mode", *mode).Str("symbol", *symbol).Msg("starting quanttrader")

	backend, err := buildBackend(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize persistence backend")
	}

	ev := events.NewManager(log)
	reg := prometheus.NewRegistry()
	events.NewMetrics(reg, ev)

	schemaSvc := schema.NewService()
	registerExampleSchema(schemaSvc)

	regis := registry.New(schemaSvc, backend, ev, cfg.PersistRisk, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.New(server.Config{Log: log, Events: ev, Port: cfg.HTTPPort})
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("control plane server stopped")
		}
	}()

	if cfg.ArchivalEnabled() {
		archiver, err := buildArchiver(ctx, cfg, log)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize S3 archiver, continuing without archival")
		} else {
			go archiver.Run(ctx, 5*time.Minute)
		}
	}

	switch *mode {
	case "backtest":
		runBacktest(ctx, regis, log, backtestParams{
			strategyName: *strategyName,
			exchangeName: "http",
			frameName:    "1m",
			symbol:       *symbol,
			windowStart:  *windowStart,
			windowEnd:    *windowEnd,
		})
	case "live":
		runLive(ctx, regis, ev, log, *strategyName, "http", *symbol)
		waitForShutdown(log)
	default:
		log.Fatal().Str("mode", *mode).Msg("unknown mode, want backtest or live")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("control plane server forced to shutdown")
	}
}

func buildBackend(cfg *config.Config) (persist.Backend, error) {
	switch cfg.Backend {
	case "sqlite":
		return persist.NewSQLiteBackend(cfg.SQLitePath)
	case "mongo":
		return persist.NewMongoBackend(context.Background(), cfg.MongoURI, cfg.MongoDatabase, cfg.MongoColl)
	default:
		return persist.NewFileBackend(cfg.DataDir), nil
	}
}

func buildArchiver(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*reliability.Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return reliability.New(client, cfg.S3Bucket, "quanttrader", log), nil
}

// registerExampleSchema registers a reference exchange, frame, sizing,
// risk profile and strategy so the process is runnable out of the box.
// The strategy's GetSignal never proposes a signal, so every tick ends
// idle.
func registerExampleSchema(svc *schema.Service) {
	adapter := httpadapter.New(httpadapter.Config{
		BaseURL:        "http://localhost:8081",
		PriceTick:      decimal.NewFromFloat(0.01),
		QuantityLot:    decimal.NewFromFloat(0.0001),
		FeeRatePerSide: decimal.NewFromFloat(0.001),
		Timeout:        10 * time.Second,
	})

	_ = svc.AddExchange(schema.ExchangeSchema{ExchangeName: "http", Adapter: adapter})
	_ = svc.AddFrame(schema.FrameSchema{FrameName: "1m", Frame: frame.NewIntervalFrame(1)})
	_ = svc.AddSizing(schema.SizingSchema{SizingName: "fixed-2pct", Sizing: sizing.NewFixedFraction(decimal.NewFromFloat(0.02))})
	_ = svc.AddRisk(schema.RiskSchema{
		RiskName: "single-position",
		Validations: []risk.Validation{
			risk.ValidationFunc(func(p risk.ValidationPayload) error {
				if p.ActivePositionCount >= 3 {
					return fmt.Errorf("risk: at most 3 concurrent positions allowed, have %d", p.ActivePositionCount)
				}
				return nil
			}),
		},
	})

	_ = svc.AddStrategy(strategy.Schema{
		StrategyName:    "trend-follow",
		ExchangeName:    "http",
		FrameName:       "1m",
		RiskName:        "single-position",
		SizingName:      "fixed-2pct",
		IntervalMinutes: 1,
		GetSignal: func(ctx context.Context) (*domain.SignalProposal, error) {
			return nil, nil
		},
	})
}

type backtestParams struct {
	strategyName string
	exchangeName string
	frameName    string
	symbol       string
	windowStart  int64
	windowEnd    int64
}

func runBacktest(ctx context.Context, reg *registry.Registry, log zerolog.Logger, p backtestParams) {
	st, err := reg.Strategy(p.strategyName, true)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve backtest strategy")
	}
	ex, err := reg.Exchange(p.exchangeName)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve backtest exchange")
	}
	fr, err := reg.Frame(p.frameName)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve backtest frame")
	}

	bd := driver.NewBacktestDriver(st, ex, fr, nil, log)
	run := driver.BacktestRun{
		StrategyName: p.strategyName,
		ExchangeName: p.exchangeName,
		FrameName:    p.frameName,
		Symbol:       p.symbol,
		WindowStart:  p.windowStart,
		WindowEnd:    p.windowEnd,
	}
	if err := bd.Run(ctx, run); err != nil {
		log.Fatal().Err(err).Msg("backtest run failed")
	}
}

func runLive(ctx context.Context, reg *registry.Registry, ev *events.Manager, log zerolog.Logger, strategyName, exchangeName, symbol string) {
	st, err := reg.Strategy(strategyName, false)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve live strategy")
	}
	ld := driver.NewLiveDriver(st, ev, log)
	ld.Background(ctx, driver.LiveRun{
		StrategyName: strategyName,
		ExchangeName: exchangeName,
		Symbol:       symbol,
		Interval:     time.Minute,
	})
}

func waitForShutdown(log zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")
}
