package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ingotfund/config"
	"ingotfund/core/events"
	"ingotfund/core/types"
	"ingotfund/ledger"
	"ingotfund/native/common"
	"ingotfund/native/fund"
	"ingotfund/observability/logging"
	"ingotfund/observability/metrics"
	"ingotfund/rpc"
	"ingotfund/state"
	"ingotfund/storage"
)

const genesisSeededKey = "meta/genesisSeeded"

func main() {
	configPath := flag.String("config", "./config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.SetupWithOptions("ingotfundd", cfg.Environment, logging.Options{
		FilePath:  cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	engineAccount, err := types.ParseAddress(cfg.EngineAccount)
	if err != nil {
		return err
	}
	assets := ledger.NewLedger(db, engineAccount)
	if err := seedGenesis(db, assets, cfg, logger); err != nil {
		return fmt.Errorf("seed genesis: %w", err)
	}

	params, err := cfg.FundParams()
	if err != nil {
		return err
	}
	engine := fund.NewEngine(params)
	engine.SetState(state.NewManager(db))
	engine.SetLedger(assets)

	auth := common.NewStaticAuthorizer()
	for _, admin := range cfg.AdminAddresses {
		addr, err := types.ParseAddress(admin)
		if err != nil {
			return err
		}
		auth.GrantAll(addr)
	}
	engine.SetAuthorizer(auth)

	pauses := common.NewSwitchSet()
	engine.SetPauses(pauses)
	engine.SetEmitter(events.Multi(events.SlogEmitter{Logger: logger}, metrics.NewEmitter()))

	if err := engine.InitGenesis(); err != nil {
		return fmt.Errorf("init genesis: %w", err)
	}

	go serveMetrics(cfg.MetricsAddress, logger)
	go refreshCoverageGauge(engine, logger)

	server := rpc.NewServer(engine, logger)
	server.SetPauser(pauses)
	return server.Start(cfg.RPCAddress)
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemDB(), nil
	case "bolt":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "ingotfund.db"))
	case "leveldb":
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "ingotfund"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// seedGenesis credits the configured allocations exactly once per data
// directory.
func seedGenesis(db storage.Database, assets *ledger.Ledger, cfg *config.Config, logger *slog.Logger) error {
	_, err := db.Get([]byte(genesisSeededKey))
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	for _, alloc := range cfg.Genesis {
		addr, err := types.ParseAddress(alloc.Address)
		if err != nil {
			return err
		}
		amount, ok := newBigInt(alloc.Amount)
		if !ok {
			return fmt.Errorf("invalid genesis amount %q", alloc.Amount)
		}
		if err := assets.Credit(addr, alloc.Token, amount); err != nil {
			return err
		}
		logger.Info("seeded genesis allocation",
			slog.String("address", addr.Hex()),
			slog.String("token", alloc.Token),
			slog.String("amount", amount.String()),
		)
	}
	return db.Put([]byte(genesisSeededKey), []byte{1})
}

func newBigInt(s string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || amount.Sign() <= 0 {
		return nil, false
	}
	return amount, true
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("starting metrics server", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", slog.String("error", err.Error()))
	}
}

// refreshCoverageGauge publishes the coverage ratio on a slow tick; the gauge
// only needs to be roughly current for dashboards.
func refreshCoverageGauge(engine *fund.Engine, logger *slog.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		coverage, err := engine.CoverageRatio()
		if err != nil {
			logger.Warn("coverage refresh failed", slog.String("error", err.Error()))
			continue
		}
		metrics.Fund().SetCoverageRatio(coverage)
	}
}
