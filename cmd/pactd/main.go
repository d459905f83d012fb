package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pactnet/config"
	"pactnet/core/events"
	"pactnet/core/state"
	"pactnet/native/arbitration"
	"pactnet/native/bank"
	"pactnet/native/escrow"
	nativeparams "pactnet/native/params"
	"pactnet/native/swap"
	"pactnet/observability"
	"pactnet/observability/logging"
	"pactnet/storage"
)

// adminSet answers administrator checks from the configured account list.
type adminSet map[[20]byte]struct{}

func (s adminSet) IsAdmin(addr [20]byte) bool {
	_, ok := s[addr]
	return ok
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("PACT_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("pactd", env)

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)
	emitter := observability.NewInstrumentedEmitter(events.NoopEmitter{}, logger)

	admins := make(adminSet)
	for _, account := range cfg.AdminAccounts {
		addr, err := config.ParseAddress(account)
		if err != nil {
			logger.Error("Invalid admin account", slog.String("account", account), slog.Any("error", err))
			os.Exit(1)
		}
		admins[addr] = struct{}{}
	}

	for _, token := range cfg.AllowedTokens {
		if err := manager.TokenAllowlistSet(token, true); err != nil {
			logger.Error("Failed to seed token allow-list", slog.String("token", token), slog.Any("error", err))
			os.Exit(1)
		}
	}

	gateway := observability.NewInstrumentedGateway(bank.NewVault(manager))

	pool := arbitration.NewPool()
	pool.SetState(manager)
	pool.SetEmitter(emitter)

	paramStore := nativeparams.NewStore(manager, admins)
	paramStore.SetPool(pool)

	poolParams, err := resolveSelection(cfg, paramStore)
	if err != nil {
		logger.Error("Invalid arbitration parameters", slog.Any("error", err))
		os.Exit(1)
	}
	pool.SetParams(poolParams)

	engine := escrow.NewEngine()
	engine.SetState(manager)
	engine.SetGateway(gateway)
	engine.SetSelector(pool)
	engine.SetAuthorizer(admins)
	engine.SetEmitter(emitter)
	engine.SetPauses(paramStore)

	policy, err := resolvePolicy(cfg, paramStore)
	if err != nil {
		logger.Error("Invalid escrow policy", slog.Any("error", err))
		os.Exit(1)
	}
	if err := engine.SetPolicy(policy); err != nil {
		logger.Error("Escrow policy rejected", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.FeeCollector != "" {
		collector, err := config.ParseAddress(cfg.FeeCollector)
		if err != nil {
			logger.Error("Invalid fee collector", slog.Any("error", err))
			os.Exit(1)
		}
		engine.SetFeeCollector(collector)
	} else if collector, ok, err := paramStore.FeeCollector(); err == nil && ok {
		engine.SetFeeCollector(collector)
	}

	registry := swap.NewRegistry()
	registry.SetState(manager)
	registry.SetGateway(gateway)
	registry.SetEmitter(emitter)
	registry.SetPauses(paramStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddress, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", slog.Any("error", err))
			}
		}()
	}

	logger.Info("pactd started",
		slog.String("network", cfg.NetworkName),
		slog.String("dataDir", cfg.DataDir),
		slog.Int("admins", len(admins)),
	)

	<-ctx.Done()
	logger.Info("Shutting down")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

// resolveSelection prefers governance-set selection parameters from the param
// store, falling back to the file configuration.
func resolveSelection(cfg *config.Config, store *nativeparams.Store) (arbitration.Params, error) {
	if stored, ok, err := store.Selection(); err != nil {
		return arbitration.Params{}, err
	} else if ok {
		return arbitration.Params{
			MinReputation:     stored.MinReputation,
			MaxActiveDisputes: stored.MaxActiveDisputes,
			CandidateCap:      stored.CandidateCap,
			BaseUnit:          stored.BaseUnit,
		}, nil
	}

	baseUnit, err := config.ParseAmount(cfg.Arbitration.BaseUnit)
	if err != nil {
		return arbitration.Params{}, err
	}
	params := arbitration.DefaultParams()
	params.MinReputation = cfg.Arbitration.MinReputation
	params.MaxActiveDisputes = cfg.Arbitration.MaxActiveDisputes
	params.CandidateCap = cfg.Arbitration.CandidateCap
	params.BaseUnit = baseUnit
	return params, nil
}

// resolvePolicy prefers a governance-set policy from the param store, falling
// back to the file configuration.
func resolvePolicy(cfg *config.Config, store *nativeparams.Store) (escrow.Policy, error) {
	if stored, ok, err := store.Policy(); err != nil {
		return escrow.Policy{}, err
	} else if ok {
		return escrow.Policy{
			FeeBps:            stored.FeeBps,
			MinAmount:         stored.MinEscrowAmount,
			DisputeFee:        stored.DisputeFee,
			DisputeWindowSecs: stored.DisputeWindowSecs,
		}, nil
	}

	minAmount, err := config.ParseAmount(cfg.Escrow.MinEscrowAmount)
	if err != nil {
		return escrow.Policy{}, err
	}
	disputeFee, err := config.ParseAmount(cfg.Escrow.DisputeFee)
	if err != nil {
		return escrow.Policy{}, err
	}
	return escrow.Policy{
		FeeBps:            cfg.Escrow.FeeBps,
		MinAmount:         minAmount,
		DisputeFee:        disputeFee,
		DisputeWindowSecs: cfg.Escrow.DisputeWindowSecs,
	}, nil
}
