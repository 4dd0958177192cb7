// Command liqsentinel runs the automated Aave v3 liquidation agent: it
// watches a configured set of users, scans health factors each block,
// sizes and quotes any triggered liquidation, submits it with
// replace-by-fee, sweeps leftover profit into USDC, and reports a
// health server for rolling deployments. Wiring shape: flag/env
// resolution, structured logging, then a blocking run loop torn down on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	migrations "github.com/nodies-labs/liqsentinel/db/migrations"
	"github.com/nodies-labs/liqsentinel/db/migrator"
	httpadapter "github.com/nodies-labs/liqsentinel/internal/adapters/inbound/http"
	"github.com/nodies-labs/liqsentinel/internal/adapters/outbound/alchemy"
	"github.com/nodies-labs/liqsentinel/internal/adapters/outbound/coingecko"
	"github.com/nodies-labs/liqsentinel/internal/adapters/outbound/httprpc"
	"github.com/nodies-labs/liqsentinel/internal/adapters/outbound/jsonl"
	"github.com/nodies-labs/liqsentinel/internal/adapters/outbound/memcache"
	"github.com/nodies-labs/liqsentinel/internal/adapters/outbound/multicall"
	"github.com/nodies-labs/liqsentinel/internal/adapters/outbound/postgres"
	rediscache "github.com/nodies-labs/liqsentinel/internal/adapters/outbound/redis"
	s3adapter "github.com/nodies-labs/liqsentinel/internal/adapters/outbound/s3"
	snsadapter "github.com/nodies-labs/liqsentinel/internal/adapters/outbound/sns"
	"github.com/nodies-labs/liqsentinel/internal/adapters/outbound/subgraph"
	"github.com/nodies-labs/liqsentinel/internal/adapters/outbound/teesink"
	"github.com/nodies-labs/liqsentinel/internal/adapters/outbound/telemetry"
	"github.com/nodies-labs/liqsentinel/internal/blocksource"
	"github.com/nodies-labs/liqsentinel/internal/calldata"
	"github.com/nodies-labs/liqsentinel/internal/config"
	"github.com/nodies-labs/liqsentinel/internal/consolidator"
	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/healthscanner"
	"github.com/nodies-labs/liqsentinel/internal/liveness"
	"github.com/nodies-labs/liqsentinel/internal/opportunity"
	evmcrypto "github.com/nodies-labs/liqsentinel/internal/pkg/crypto"
	"github.com/nodies-labs/liqsentinel/internal/pkg/env"
	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
	"github.com/nodies-labs/liqsentinel/internal/priceoracle"
	"github.com/nodies-labs/liqsentinel/internal/routeengine"
	"github.com/nodies-labs/liqsentinel/internal/submission"
	"github.com/nodies-labs/liqsentinel/internal/txbuilder"
	"github.com/nodies-labs/liqsentinel/internal/watchlist"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelInfo),
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	tracerShutdown, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "liqsentinel",
		JaegerEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SampleRate:     1.0,
	})
	if err != nil {
		logger.Warn("tracer initialization failed, continuing without tracing", "error", err)
		tracerShutdown = func(context.Context) error { return nil }
	}
	defer func() { _ = tracerShutdown(context.Background()) }()

	metricsShutdown, err := telemetry.InitMetrics(context.Background(), telemetry.MetricConfig{
		ServiceName:  "liqsentinel",
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	})
	if err != nil {
		logger.Warn("metrics initialization failed, continuing without metrics", "error", err)
		metricsShutdown = func(context.Context) error { return nil }
	}
	defer func() { _ = metricsShutdown(context.Background()) }()

	metrics, err := telemetry.NewMetrics("liqsentinel")
	if err != nil {
		logger.Error("failed to build metrics recorder", "error", err)
		os.Exit(1)
	}

	if cfg.DryRun {
		logger.Warn("starting in dry-run mode: transactions will be built and signed but never broadcast")
	}

	rpc, multicaller, subscriber, err := buildRPC(cfg, logger)
	if err != nil {
		logger.Error("failed to build RPC transport", "error", err)
		os.Exit(1)
	}

	priv, err := evmcrypto.ParsePrivateKey(cfg.PrivateKeyHex)
	if err != nil {
		logger.Error("failed to parse PRIVATE_KEY", "error", err)
		os.Exit(1)
	}
	signer := priv.Address()

	decimalsCache := memcache.NewDecimals()
	pairCache := memcache.NewPairs()

	var reservesCache outbound.ReservesCache = memcache.NewReserves()
	var quotesCache outbound.RouterQuoteCache = memcache.NewRouterQuotes()
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisCfg := rediscache.ConfigDefaults()
		redisCfg.Addr = redisAddr
		if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
			redisCfg.Password = pw
		}
		if rc, err := rediscache.NewReservesCache(redisCfg, logger); err != nil {
			logger.Warn("redis reserves cache unavailable, falling back to in-process cache", "error", err)
		} else {
			reservesCache = rc
		}
		if qc, err := rediscache.NewRouterQuoteCache(redisCfg, logger); err != nil {
			logger.Warn("redis router-quote cache unavailable, falling back to in-process cache", "error", err)
		} else {
			quotesCache = qc
		}
	}

	var priceProvider outbound.PriceProvider
	if apiKey := os.Getenv("COINGECKO_API_KEY"); apiKey != "" {
		ccfg := coingecko.ClientConfigDefaults()
		ccfg.APIKey = apiKey
		ccfg.Logger = logger
		client, err := coingecko.NewClient(ccfg)
		if err != nil {
			logger.Warn("coingecko client unavailable, running override-only price oracle", "error", err)
		} else {
			priceProvider = client
		}
	}
	prices := priceoracle.New(cfg.PriceUSDOverrides, priceProvider, nil)

	route := routeengine.New(rpc, pairCache, reservesCache, quotesCache)
	exchangeA := routeengine.Exchange{Name: cfg.ExchangeA.Name, Factory: cfg.ExchangeA.Factory, Router: cfg.ExchangeA.Router}
	exchangeB := routeengine.Exchange{Name: cfg.ExchangeB.Name, Factory: cfg.ExchangeB.Factory, Router: cfg.ExchangeB.Router}

	assembler, err := calldata.NewAssembler(cfg.LiquidateArbSelectorHex, cfg.LiquidateBatchSelectorHex)
	if err != nil {
		logger.Error("failed to build calldata assembler", "error", err)
		os.Exit(1)
	}

	nonceCounter, err := txbuilder.NewNonceCounter(context.Background(), rpc, signer)
	if err != nil {
		logger.Error("failed to seed nonce counter", "error", err)
		os.Exit(1)
	}
	txCfg := txbuilder.DefaultConfig()
	txCfg.ChainID = cfg.Endpoints.ForkChainID
	if txCfg.ChainID == 0 {
		txCfg.ChainID = 137 // Polygon mainnet
	}
	builder := txbuilder.New(txCfg, rpc, nonceCounter)

	events := buildEventSink(context.Background(), logger)

	subCfg := submission.DefaultConfig()
	subCfg.RBFBumpFactor = cfg.Submission.RBFBumpFactor
	subCfg.RBFIntervalSec = cfg.Submission.RBFIntervalSec
	subCfg.RBFMaxBumps = cfg.Submission.RBFMaxBumps
	subCfg.ReceiptTimeout = cfg.Submission.ReceiptTimeoutMS
	subCfg.SubmitPrivate = cfg.Submission.SubmitPrivate
	subCfg.RelayURLs = cfg.Submission.RelayURLs
	subCfg.MaxSlippageBps = cfg.Policy.MaxSlippageBps
	pipeline := submission.New(subCfg, rpc, builder, priv, events)

	evalCfg := opportunity.Config{
		MinLiquidationUSD:   cfg.Policy.MinLiquidationUSD,
		MaxLiquidationUSD:   cfg.Policy.MaxLiquidationUSD,
		SplitTriggerUSD:     cfg.Policy.SplitTriggerUSD,
		MaxSlippageBps:      cfg.Policy.MaxSlippageBps,
		FlashLoanPremiumBps: cfg.Policy.FlashLoanPremiumBps,
		GasCostInDebtUnits:  cfg.Policy.GasCostInDebtUnits,
		SignerAddress:       signer,
		DefaultReserveParams: cfg.DefaultReserve,
	}
	evaluator := opportunity.New(evalCfg, rpc, decimalsCache, cfg.ReserveParamOverrides, prices, route, exchangeA, exchangeB, cfg.Addresses.NativeWrapped, cfg.Addresses.CanonicalStable)

	consolidatorCfg := consolidator.Config{
		Tokens:         cfg.Consolidation.ProfitTokens,
		USDC:           cfg.Addresses.USDC,
		MinSwapUSD:     cfg.Consolidation.MinSwapUSD,
		MaxSlippageBps: cfg.Policy.MaxSlippageBps,
		SignerAddress:  signer,
	}
	sweeper := consolidator.New(consolidatorCfg, rpc, decimalsCache, prices, route, exchangeA, builder, pipeline, events)

	wl := watchlist.New(watchlist.Config{
		DefaultTargetBuffer: cfg.Watch.DefaultBuffer,
		BufferMin:           cfg.Watch.BufferMin,
		BufferMax:           cfg.Watch.BufferMax,
		MaxPrestage:         cfg.Watch.MaxPrestage,
	})
	seedWatchlist(wl, cfg)

	scanner := healthscanner.New(cfg.Addresses.AavePool, multicaller, rpc)
	tracker := liveness.New(wl, 5*time.Minute)

	var valuer outbound.PositionValuer
	if cfg.AaveSubgraphURL != "" {
		sgCfg := subgraph.ConfigDefaults()
		sgCfg.URL = cfg.AaveSubgraphURL
		valuer = subgraph.New(sgCfg)
	} else {
		logger.Warn("AAVE_SUBGRAPH_URL not set: watchlist entries will size against a zero estimated USD value")
	}

	archiveBucket := os.Getenv("LIQUIDATION_ARCHIVE_BUCKET")
	var archive outbound.S3Writer
	if archiveBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			logger.Warn("liquidation archive unavailable, AWS config failed", "error", err)
		} else {
			archive = s3adapter.NewWriter(awsCfg, logger)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	orchestrator := &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		rpc:       rpc,
		watchlist: wl,
		scanner:   scanner,
		evaluator: evaluator,
		assembler: assembler,
		builder:   builder,
		pipeline:  pipeline,
		sweeper:   sweeper,
		events:        events,
		tracker:       tracker,
		valuer:        valuer,
		metrics:       metrics,
		archive:       archive,
		archiveBucket: archiveBucket,
		jobs:          make(chan liquidationJob, maxConcurrency*4),
		precomputed:   make(map[domain.WatchKey]precomputedCalldata),
	}
	orchestrator.startWorkers(ctx, maxConcurrency)

	shuttingDown := &atomic.Bool{}
	healthServer := httpadapter.NewHealthServer(httpadapter.HealthServerConfigDefaults(), tracker, shuttingDown)
	healthServer.Start()

	statusMux := http.NewServeMux()
	httpadapter.NewHandler(tracker, logger).RegisterRoutes(statusMux)
	statusServer := &http.Server{Addr: ":8081", Handler: statusMux}
	go func() {
		if err := statusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("status server failed", "error", err)
		}
	}()

	blockSourceCfg := blocksource.Config{
		Subscriber: subscriber,
		RPC:        rpc,
		Logger:     logger,
	}
	source, err := blocksource.New(blockSourceCfg)
	if err != nil {
		logger.Error("failed to build block source", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	runErr := make(chan error, 1)
	go func() {
		runErr <- source.Run(ctx, func(height int64) {
			orchestrator.OnBlock(ctx, height)
		})
	}()

	logger.Info("liqsentinel started", "aave_pool", cfg.Addresses.AavePool.Hex(), "signer", signer.Hex())

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig)
	case err := <-runErr:
		logger.Error("block source terminated", "error", err)
	}

	shuttingDown.Store(true)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = healthServer.Shutdown(10 * time.Second)
	_ = statusServer.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}

// Orchestrator wires one per-block tick: scan, prestage, trigger, evaluate,
// submit, and sweep.
type Orchestrator struct {
	cfg       *config.Config
	logger    *slog.Logger
	rpc       outbound.RPCClient
	watchlist *watchlist.Watchlist
	scanner   *healthscanner.Scanner
	evaluator *opportunity.Evaluator
	assembler *calldata.Assembler
	builder   *txbuilder.Builder
	pipeline  *submission.Pipeline
	sweeper   *consolidator.Consolidator
	events    outbound.EventSink
	tracker   *liveness.Tracker
	valuer    outbound.PositionValuer
	metrics   *telemetry.Metrics

	archive       outbound.S3Writer
	archiveBucket string

	// jobs feeds the bounded worker pool started by startWorkers. OnBlock
	// only ever enqueues onto it; it never waits on a job's completion, so
	// a slow evaluation or RBF cycle can't hold up the block source.
	jobs chan liquidationJob

	precomputedMu sync.Mutex
	precomputed   map[domain.WatchKey]precomputedCalldata
}

// jobKind distinguishes the two things the worker pool does with a watch
// entry: prestaging (precompute only) and triggering (evaluate, build,
// submit).
type jobKind int

const (
	jobPrestage jobKind = iota
	jobTrigger
)

type liquidationJob struct {
	kind   jobKind
	entry  domain.WatchEntry
	height int64
}

// precomputedCalldata is a cached result of evaluating and assembling
// calldata for a watch entry during its prestage window. It is keyed by
// WatchKey and only reused by evaluateAndSubmit when its height matches
// the block the entry actually triggers on — a stale precompute (quotes
// a block old) is discarded and re-evaluated fresh instead.
type precomputedCalldata struct {
	height     int64
	data       []byte
	skip       bool
	skipReason domain.SkipReason
}

// startWorkers launches the bounded pool that drains o.jobs. Workers run
// for the lifetime of ctx; OnBlock never blocks on them.
func (o *Orchestrator) startWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		go func() {
			for job := range o.jobs {
				switch job.kind {
				case jobPrestage:
					o.precomputeCalldata(ctx, job.entry, job.height)
				case jobTrigger:
					o.evaluateAndSubmit(ctx, job.entry, job.height)
				}
			}
		}()
	}
}

// enqueue offers a job to the worker pool without blocking. A full queue
// means every worker is already busy with tens-of-seconds-long submission
// or RBF work; dropping the job here (rather than blocking the caller)
// is what keeps the block source callback itself non-blocking.
func (o *Orchestrator) enqueue(job liquidationJob, dropLevel string) {
	select {
	case o.jobs <- job:
	default:
		o.logger.Warn("liquidation worker pool saturated, dropping job", "kind", dropLevel, "user", job.entry.User.Hex(), "block", job.height)
	}
}

// OnBlock runs one tick of the scan/prestage/trigger pipeline for a newly
// observed block height. Scanning happens inline (it is the input the
// rest of the tick depends on), but every per-entry precompute and every
// triggered evaluate/submit is handed to the bounded worker pool so this
// callback returns without waiting on them.
func (o *Orchestrator) OnBlock(ctx context.Context, height int64) {
	results, err := o.scanner.Scan(ctx, o.cfg.Watch.MonitorUsers, "latest")
	if err != nil {
		o.logger.Warn("health scan failed", "block", height, "error", err)
	}
	entries := make([]domain.WatchEntry, 0, len(results))
	for _, r := range results {
		usdValue := o.resolveUSDValue(ctx, r.User)
		for _, debt := range o.cfg.Watch.DebtAssets {
			for _, collat := range o.cfg.Watch.CollateralAssets {
				entries = append(entries, domain.WatchEntry{
					User:            r.User,
					DebtAsset:       debt,
					CollateralAsset: collat,
					HealthFactor:    r.HealthFactor,
					USDValue:        usdValue,
				})
			}
		}
	}
	o.watchlist.Upsert(entries)
	o.watchlist.AdaptBuffers()

	prestaged := o.watchlist.Prestage()
	triggered := o.watchlist.Trigger()
	o.tracker.RecordBlock(height, len(prestaged), len(triggered))

	for _, entry := range prestaged {
		o.enqueue(liquidationJob{kind: jobPrestage, entry: entry, height: height}, "prestage")
	}
	for _, entry := range triggered {
		o.enqueue(liquidationJob{kind: jobTrigger, entry: entry, height: height}, "trigger")
	}

	if len(triggered) > 0 {
		if hash, err := o.sweeper.Consolidate(ctx, height); err != nil {
			o.logger.Warn("profit consolidation failed", "block", height, "error", err)
		} else if hash != "" {
			o.logger.Info("profit swept", "block", height, "tx_hash", hash)
		}
	}
}

// resolveUSDValue looks up a user's total position size from the
// subgraph, feeding the watchlist's close-factor sizing math. A lookup failure or an unconfigured subgraph leaves the
// entry at zero, which the opportunity evaluator's MinLiquidationUSD
// floor then naturally screens out rather than mis-sizing a trade.
func (o *Orchestrator) resolveUSDValue(ctx context.Context, user domain.Address) float64 {
	if o.valuer == nil {
		return 0
	}
	position, err := o.valuer.UserPosition(ctx, user)
	if err != nil {
		o.logger.Warn("position value lookup failed", "user", user.Hex(), "error", err)
		return 0
	}
	if position.TotalCollateralUSD > position.TotalDebtUSD {
		return position.TotalCollateralUSD
	}
	return position.TotalDebtUSD
}

// precomputeCalldata evaluates and assembles calldata for a prestaged
// entry ahead of it actually triggering, caching the result so
// evaluateAndSubmit can skip straight to building the transaction when
// the entry crosses the trigger threshold on the same block.
func (o *Orchestrator) precomputeCalldata(ctx context.Context, entry domain.WatchEntry, height int64) {
	target := domain.LiquidationTarget{
		User:              entry.User,
		DebtAsset:         entry.DebtAsset,
		CollateralAsset:   entry.CollateralAsset,
		EstimatedUSDValue: entry.USDValue,
	}

	outcome, err := o.evaluator.Evaluate(ctx, target, height)
	if err != nil {
		return
	}
	key := entry.Key()
	if outcome.Params == nil {
		o.precomputedMu.Lock()
		o.precomputed[key] = precomputedCalldata{height: height, skip: true, skipReason: outcome.SkipReason}
		o.precomputedMu.Unlock()
		return
	}

	data, err := o.assembler.BuildLiquidateAndArb(*outcome.Params)
	if err != nil {
		return
	}
	o.precomputedMu.Lock()
	o.precomputed[key] = precomputedCalldata{height: height, data: data}
	o.precomputedMu.Unlock()
}

// takePrecomputed returns and consumes the cached calldata for key if it
// was precomputed for exactly this height. A precompute from an earlier
// block is quoted against stale reserves and is discarded rather than
// reused.
func (o *Orchestrator) takePrecomputed(key domain.WatchKey, height int64) (precomputedCalldata, bool) {
	o.precomputedMu.Lock()
	defer o.precomputedMu.Unlock()
	p, ok := o.precomputed[key]
	if !ok || p.height != height {
		return precomputedCalldata{}, false
	}
	delete(o.precomputed, key)
	return p, true
}

func (o *Orchestrator) evaluateAndSubmit(ctx context.Context, entry domain.WatchEntry, height int64) {
	evalStart := time.Now()

	var data []byte
	if pre, ok := o.takePrecomputed(entry.Key(), height); ok {
		if pre.skip {
			o.metrics.RecordEvaluation(ctx, time.Since(evalStart), "skipped")
			o.logger.Info("skipped", "user", entry.User.Hex(), "reason", pre.skipReason)
			return
		}
		data = pre.data
		o.metrics.RecordEvaluation(ctx, time.Since(evalStart), "actionable")
	} else {
		target := domain.LiquidationTarget{
			User:              entry.User,
			DebtAsset:         entry.DebtAsset,
			CollateralAsset:   entry.CollateralAsset,
			EstimatedUSDValue: entry.USDValue,
		}

		outcome, err := o.evaluator.Evaluate(ctx, target, height)
		if err != nil {
			o.metrics.RecordEvaluation(ctx, time.Since(evalStart), "error")
			o.logger.Warn("evaluation error", "user", entry.User.Hex(), "error", err)
			return
		}
		if outcome.Params == nil {
			o.metrics.RecordEvaluation(ctx, time.Since(evalStart), "skipped")
			o.logger.Info("skipped", "user", entry.User.Hex(), "reason", outcome.SkipReason)
			return
		}
		o.metrics.RecordEvaluation(ctx, time.Since(evalStart), "actionable")

		built, err := o.assembler.BuildLiquidateAndArb(*outcome.Params)
		if err != nil {
			o.logger.Warn("calldata assembly failed", "user", entry.User.Hex(), "error", err)
			return
		}
		data = built
	}

	fields, err := o.builder.Build(ctx, o.cfg.Addresses.Executor, data, nil)
	if err != nil {
		o.logger.Warn("transaction build failed", "user", entry.User.Hex(), "error", err)
		return
	}

	if o.cfg.DryRun {
		o.logger.Info("dry run: would submit liquidation", "user", entry.User.Hex(), "gas_limit", fields.GasLimit)
		return
	}

	subStart := time.Now()
	result, err := o.pipeline.Submit(ctx, fields, 0)
	if err != nil {
		o.metrics.RecordSubmission(ctx, time.Since(subStart), "failed")
		o.logger.Warn("submission failed", "user", entry.User.Hex(), "error", err)
		return
	}
	o.metrics.RecordSubmission(ctx, time.Since(subStart), "landed")
	if result.Bumps > 0 {
		for i := 0; i < result.Bumps; i++ {
			o.metrics.RecordRBFBump(ctx)
		}
	}
	o.logger.Info("liquidation submitted", "user", entry.User.Hex(), "tx_hash", result.TxHash, "bumps", result.Bumps)
}

func buildRPC(cfg *config.Config, logger *slog.Logger) (outbound.RPCClient, outbound.Multicaller, outbound.BlockSubscriber, error) {
	publicURL := cfg.Endpoints.PublicRPCURL
	if cfg.Endpoints.ForkRPCURL != "" {
		publicURL = cfg.Endpoints.ForkRPCURL
	}

	rpcCfg := httprpc.ConfigDefaults()
	rpcCfg.Public = httprpc.Endpoint{URL: publicURL, AuthHeaderValue: cfg.Endpoints.ForkAuthHeader}
	if cfg.Endpoints.PrivateTxURL != "" {
		rpcCfg.Private = &httprpc.Endpoint{URL: cfg.Endpoints.PrivateTxURL, AuthHeaderValue: cfg.Endpoints.PrivateAuthHeader}
	}

	rpc, err := httprpc.New(rpcCfg, &http.Client{
		Transport: &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}},
	})
	if err != nil {
		return nil, nil, nil, errkind.Wrap(errkind.Config, "main: build rpc client", err)
	}

	var multicaller outbound.Multicaller
	if !cfg.Addresses.Multicall.IsZero() {
		multicaller = multicall.New(cfg.Addresses.Multicall, rpc)
	}

	var subscriber outbound.BlockSubscriber
	if wsURL := os.Getenv("ALCHEMY_WS_URL"); wsURL != "" {
		sub, err := alchemy.NewSubscriber(alchemy.Config{WebSocketURL: wsURL, Logger: logger})
		if err != nil {
			logger.Warn("websocket subscriber unavailable, falling back to HTTP filter/polling", "error", err)
		} else {
			subscriber = sub
		}
	}

	return rpc, multicaller, subscriber, nil
}

// buildEventSink wires the required JSONL file sink plus whichever
// optional adapters are configured (Postgres audit trail, SNS fan-out),
// composed behind a single teesink.Sink.
func buildEventSink(ctx context.Context, logger *slog.Logger) outbound.EventSink {
	path := os.Getenv("EVENT_LOG_PATH")
	if path == "" {
		path = "events.jsonl"
	}
	primary, err := jsonl.Open(path, 1024)
	if err != nil {
		logger.Warn("jsonl event sink unavailable, telemetry will be dropped", "error", err)
		return nil
	}

	sinks := []outbound.EventSink{primary}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := postgres.OpenPool(ctx, postgres.DefaultDBConfig(dbURL))
		if err != nil {
			logger.Warn("postgres event sink unavailable", "error", err)
		} else if err := migrator.NewFS(pool, migrations.FS).ApplyAll(ctx); err != nil {
			logger.Warn("postgres schema migration failed, event sink unavailable", "error", err)
		} else if pgSink, err := postgres.NewEventSink(pool, logger); err != nil {
			logger.Warn("postgres event sink unavailable", "error", err)
		} else {
			sinks = append(sinks, pgSink)
		}
	}

	if topicARN := os.Getenv("SNS_EVENT_TOPIC_ARN"); topicARN != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Warn("sns event sink unavailable", "error", err)
		} else {
			snsCfg := snsadapter.ConfigDefaults()
			snsCfg.TopicARN = topicARN
			snsCfg.Logger = logger
			if snsSink, err := snsadapter.NewEventSink(awssns.NewFromConfig(awsCfg), snsCfg); err != nil {
				logger.Warn("sns event sink unavailable", "error", err)
			} else {
				sinks = append(sinks, snsSink)
			}
		}
	}

	return teesink.New(sinks...)
}

func seedWatchlist(wl *watchlist.Watchlist, cfg *config.Config) {
	entries := make([]domain.WatchEntry, 0, len(cfg.Watch.MonitorUsers))
	for _, u := range cfg.Watch.MonitorUsers {
		for _, debt := range cfg.Watch.DebtAssets {
			for _, collat := range cfg.Watch.CollateralAssets {
				entries = append(entries, domain.WatchEntry{
					User:            u,
					DebtAsset:       debt,
					CollateralAsset: collat,
					HealthFactor:    2.0, // unknown until the first scan; not underwater by default
					TargetBuffer:    cfg.Watch.DefaultBuffer,
				})
			}
		}
	}
	wl.Upsert(entries)
}
