package commands

import (
	"fmt"

	"github.com/quantrail/riskledger/internal/batch"
	"github.com/quantrail/riskledger/internal/contracts"
	"github.com/quantrail/riskledger/internal/factor"
	"github.com/quantrail/riskledger/internal/marketdata"
	"github.com/quantrail/riskledger/internal/portfolio"
	"github.com/quantrail/riskledger/internal/snapshot"
	"github.com/quantrail/riskledger/internal/stress"
	"github.com/quantrail/riskledger/pkg/config"
	"github.com/quantrail/riskledger/pkg/database"
	"github.com/quantrail/riskledger/pkg/logger"
	"github.com/quantrail/riskledger/pkg/redis"
)

// services wires the full analytics stack. Every command builds the
// same graph; commands differ only in which parts they drive.
type services struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *database.DB
	redis  *redis.Client

	portfolios *portfolio.Repository
	snapshots  *snapshot.Repository
	prices     contracts.PriceReader
	exposures  *factor.Repository
	batchRepo  *batch.Repository

	snapshotEngine *snapshot.Engine
	factorEngine   *factor.Engine
	stressEngine   *stress.Engine
	orchestrator   *batch.Orchestrator
}

// buildServices loads config and connects the dependency graph
func buildServices() (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, price cache disabled")
	}

	portfolioRepo := portfolio.NewRepository(db.Pool)
	snapshotRepo := snapshot.NewRepository(db.Pool)
	exposureRepo := factor.NewRepository(db.Pool)
	batchRepo := batch.NewRepository(db.Pool)

	var prices contracts.PriceReader = marketdata.NewRepository(db.Pool)
	if redisClient != nil && redisClient.Enabled() {
		cache := redis.NewCache(redisClient, "prices")
		prices = marketdata.NewCachedPriceReader(prices, cache, cfg.Redis.PriceTTL)
		log.Info("Price series cache enabled")
	}

	snapshotEngine := snapshot.NewEngine(portfolioRepo, snapshotRepo, prices, log)
	factorEngine := factor.NewEngine(portfolioRepo, prices, exposureRepo, cfg.Factor, log)
	stressEngine := stress.NewEngine(exposureRepo, log)

	jobs := []batch.Job{
		batch.NewSnapshotJob(snapshotEngine),
		batch.NewExposureJob(factorEngine),
		batch.NewStressJob(stressEngine, log),
	}
	orchestrator := batch.NewOrchestrator(portfolioRepo, batchRepo, jobs, cfg.Batch, log)

	return &services{
		cfg:            cfg,
		logger:         log,
		db:             db,
		redis:          redisClient,
		portfolios:     portfolioRepo,
		snapshots:      snapshotRepo,
		prices:         prices,
		exposures:      exposureRepo,
		batchRepo:      batchRepo,
		snapshotEngine: snapshotEngine,
		factorEngine:   factorEngine,
		stressEngine:   stressEngine,
		orchestrator:   orchestrator,
	}, nil
}

// close releases connections
func (s *services) close() {
	if s.redis != nil {
		s.redis.Close()
	}
	s.db.Close()
}
