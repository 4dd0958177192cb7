// Package config loads every documented configuration option from
// process environment variables, with typed parsing layered on top for
// addresses, durations, basis points, and comma-separated lists. A
// .env / .env.local file is hydrated first with
// github.com/joho/godotenv before os.Getenv lookups run.
package config

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/env"
	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
)

// Endpoints holds the JSON-RPC transport selection: a mandatory public
// endpoint, an optional private endpoint used only for raw-transaction
// submission, and the fork-mode overrides.
type Endpoints struct {
	PublicRPCURL        string
	PrivateTxURL        string
	PrivateAuthHeader   string
	ForkRPCURL          string
	ForkAuthHeader      string
	ForkChainID         int64
	ForkExecutorAddress domain.Address
}

// Addresses holds every on-chain contract address this agent needs,
// plus the handful the route engine and gas-cost estimate need to
// resolve concrete swap paths (native_wrapped, canonical_stable, USDC).
type Addresses struct {
	Executor       domain.Address
	AavePool       domain.Address
	Multicall      domain.Address
	NativeWrapped  domain.Address
	CanonicalStable domain.Address
	USDC           domain.Address
}

// ExchangeConfig names one constant-product exchange's factory and router,
// used to build the two routeengine.Exchange values the route engine
// quotes across.
type ExchangeConfig struct {
	Name    string
	Factory domain.Address
	Router  domain.Address
}

// Policy holds the route/size/profitability policy constants.
type Policy struct {
	MaxSlippageBps      uint32
	SplitTriggerUSD      float64
	MinLiquidationUSD    float64
	MaxLiquidationUSD    float64
	FlashLoanPremiumBps  uint32
	GasCostInDebtUnits    *big.Int
}

// Submission holds the RBF/submission pipeline constants.
type Submission struct {
	RBFBumpFactor    float64
	RBFIntervalSec   time.Duration
	RBFMaxBumps      int
	ReceiptTimeoutMS time.Duration
	SubmitPrivate    bool
	RelayURLs        []string
	RelayAuthHeaders []string
}

// Watch holds the scan targets and watchlist tuning constants.
type Watch struct {
	MonitorUsers      []domain.Address
	DebtAssets        []domain.Address
	CollateralAssets  []domain.Address
	DefaultBuffer     float64
	BufferMin         float64
	BufferMax         float64
	MaxPrestage       int
}

// Consolidation holds the profit consolidator's constants.
type Consolidation struct {
	ProfitTokens  []domain.Address
	MinSwapUSD    float64
}

// Config is the fully-resolved, typed configuration surface. Every
// field is sourced from one or more environment variables, documented
// on the loader that resolves it.
type Config struct {
	DryRun bool

	Endpoints     Endpoints
	Addresses     Addresses
	Policy         Policy
	DefaultReserve domain.ReserveParams
	Submission    Submission
	Watch         Watch
	Consolidation Consolidation

	PrivateKeyHex  string
	WalletAddress  domain.Address

	LiquidateArbSelectorHex   string
	LiquidateBatchSelectorHex string

	PriceUSDOverrides     map[domain.Address]float64
	ReserveParamOverrides map[domain.Address]domain.ReserveParams

	ExchangeA ExchangeConfig
	ExchangeB ExchangeConfig

	MaxConcurrency int

	AaveSubgraphURL string
}

// Load hydrates .env/.env.local (if present, silently ignored if
// absent) and resolves every documented key, failing fast with a
// Config-kind error when a required key is missing.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg := &Config{
		DryRun: boolEnv("DRY_RUN", false),
		Endpoints: Endpoints{
			PublicRPCURL:      env.Get("PUBLIC_RPC_URL", ""),
			PrivateTxURL:      env.Get("NODIES_PRIVATE_TX_URL", ""),
			PrivateAuthHeader: env.Get("NODIES_AUTH_HEADER", ""),
			ForkRPCURL:        env.Get("FORK_RPC_URL", ""),
			ForkAuthHeader:    env.Get("FORK_AUTH_HEADER", ""),
			ForkChainID:       int64Env("FORK_CHAIN_ID", 0),
		},
		PrivateKeyHex:             env.Get("PRIVATE_KEY", ""),
		LiquidateArbSelectorHex:   env.Get("EXECUTOR_LIQ_ARB_SELECTOR", ""),
		LiquidateBatchSelectorHex: env.Get("EXECUTOR_LIQ_BATCH_SELECTOR", ""),
		MaxConcurrency:            intEnv("MAX_CONCURRENCY", 8),
		AaveSubgraphURL:           env.Get("AAVE_SUBGRAPH_URL", ""),
	}

	var err error
	if cfg.Endpoints.ForkExecutorAddress, err = addressEnvOptional("FORK_EXECUTOR_ADDRESS"); err != nil {
		return nil, err
	}
	if cfg.Addresses.Executor, err = requireAddress("EXECUTOR_ADDRESS"); err != nil {
		return nil, err
	}
	if cfg.Addresses.AavePool, err = requireAddress("AAVE_POOL"); err != nil {
		return nil, err
	}
	if cfg.Addresses.Multicall, err = addressEnvOptional("MULTICALL_ADDRESS"); err != nil {
		return nil, err
	}
	if cfg.Addresses.NativeWrapped, err = addressEnvOptional("NATIVE_WRAPPED"); err != nil {
		return nil, err
	}
	if cfg.Addresses.CanonicalStable, err = addressEnvOptional("CANONICAL_STABLE"); err != nil {
		return nil, err
	}
	if cfg.Addresses.USDC, err = addressEnvOptional("USDC_ADDRESS"); err != nil {
		return nil, err
	}
	if cfg.ExchangeA.Factory, err = addressEnvOptional("EXCHANGE_A_FACTORY"); err != nil {
		return nil, err
	}
	if cfg.ExchangeA.Router, err = addressEnvOptional("EXCHANGE_A_ROUTER"); err != nil {
		return nil, err
	}
	cfg.ExchangeA.Name = env.Get("EXCHANGE_A_NAME", "quickswap")
	if cfg.ExchangeB.Factory, err = addressEnvOptional("EXCHANGE_B_FACTORY"); err != nil {
		return nil, err
	}
	if cfg.ExchangeB.Router, err = addressEnvOptional("EXCHANGE_B_ROUTER"); err != nil {
		return nil, err
	}
	cfg.ExchangeB.Name = env.Get("EXCHANGE_B_NAME", "sushiswap")
	if cfg.WalletAddress, err = addressEnvOptional("WALLET_ADDRESS"); err != nil {
		return nil, err
	}
	if cfg.PrivateKeyHex == "" {
		return nil, errkind.New(errkind.Config, "config: PRIVATE_KEY is required")
	}
	if cfg.Endpoints.PublicRPCURL == "" && cfg.Endpoints.ForkRPCURL == "" {
		return nil, errkind.New(errkind.Config, "config: one of PUBLIC_RPC_URL or FORK_RPC_URL is required")
	}

	cfg.Policy = Policy{
		MaxSlippageBps:      uint32(intEnv("MAX_SLIPPAGE_BPS", 150)),
		SplitTriggerUSD:     floatEnv("SPLIT_TRIGGER_USD", 5_000),
		MinLiquidationUSD:   floatEnv("MIN_LIQ_USD", 50),
		MaxLiquidationUSD:   floatEnv("MAX_LIQ_USD", 250_000),
		FlashLoanPremiumBps: uint32(intEnv("FLASH_LOAN_PREMIUM_BPS", 9)),
		GasCostInDebtUnits:  bigIntEnv("GAS_COST_IN_DEBT_UNITS", big.NewInt(0)),
	}

	cfg.DefaultReserve = domain.ReserveParams{
		CloseFactorBps:      uint32(intEnv("DEFAULT_CLOSE_FACTOR_BPS", 5_000)),
		LiquidationBonusBps: uint32(intEnv("DEFAULT_LIQUIDATION_BONUS_BPS", 10_500)),
	}

	cfg.Submission = Submission{
		RBFBumpFactor:    floatEnv("RBF_BUMP_FACTOR", 1.20),
		RBFIntervalSec:   time.Duration(intEnv("RBF_INTERVAL_SEC", 3)) * time.Second,
		RBFMaxBumps:      intEnv("RBF_MAX_BUMPS", 3),
		ReceiptTimeoutMS: time.Duration(intEnv("RECEIPT_TIMEOUT_MS", 15_000)) * time.Millisecond,
		SubmitPrivate:    boolEnv("SUBMIT_PRIVATE", false),
		RelayURLs:        splitList(env.Get("RELAY_URLS", "")),
		RelayAuthHeaders: splitList(env.Get("RELAY_AUTH_HEADERS", "")),
	}

	monitorUsers, err := addressListEnv("MONITOR_USERS")
	if err != nil {
		return nil, err
	}
	debtAssets, err := addressListEnv("DEBT_ASSETS")
	if err != nil {
		return nil, err
	}
	collateralAssets, err := addressListEnv("COLLATERAL_ASSETS")
	if err != nil {
		return nil, err
	}
	cfg.Watch = Watch{
		MonitorUsers:     monitorUsers,
		DebtAssets:       debtAssets,
		CollateralAssets: collateralAssets,
		DefaultBuffer:    floatEnv("WATCH_DEFAULT_BUFFER", 0.05),
		BufferMin:        floatEnv("WATCH_BUFFER_MIN", 0.01),
		BufferMax:        floatEnv("WATCH_BUFFER_MAX", 0.20),
		MaxPrestage:      intEnv("WATCH_MAX_PRESTAGE", 50),
	}

	profitTokens, err := addressListEnv("PROFIT_TOKENS")
	if err != nil {
		return nil, err
	}
	cfg.Consolidation = Consolidation{
		ProfitTokens: profitTokens,
		MinSwapUSD:   floatEnv("PROFIT_MIN_SWAP_USD", 25),
	}

	if cfg.PriceUSDOverrides, err = addressFloatMapEnv("PRICE_USD_OVERRIDES"); err != nil {
		return nil, err
	}
	if cfg.ReserveParamOverrides, err = reserveParamOverridesEnv("RESERVE_PARAM_OVERRIDES"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func boolEnv(key string, def bool) bool {
	raw := env.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func intEnv(key string, def int) int {
	raw := env.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func int64Env(key string, def int64) int64 {
	raw := env.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func floatEnv(key string, def float64) float64 {
	raw := env.Get(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func bigIntEnv(key string, def *big.Int) *big.Int {
	raw := env.Get(key, "")
	if raw == "" {
		return def
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return def
	}
	return v
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func requireAddress(key string) (domain.Address, error) {
	raw := env.Get(key, "")
	if raw == "" {
		return domain.Address{}, errkind.New(errkind.Config, fmt.Sprintf("config: %s is required", key))
	}
	a, err := domain.ParseAddress(raw)
	if err != nil {
		return domain.Address{}, errkind.Wrap(errkind.Config, fmt.Sprintf("config: %s", key), err)
	}
	return a, nil
}

func addressEnvOptional(key string) (domain.Address, error) {
	raw := env.Get(key, "")
	if raw == "" {
		return domain.Address{}, nil
	}
	a, err := domain.ParseAddress(raw)
	if err != nil {
		return domain.Address{}, errkind.Wrap(errkind.Config, fmt.Sprintf("config: %s", key), err)
	}
	return a, nil
}

func addressListEnv(key string) ([]domain.Address, error) {
	raw := splitList(env.Get(key, ""))
	out := make([]domain.Address, 0, len(raw))
	for _, s := range raw {
		a, err := domain.ParseAddress(s)
		if err != nil {
			return nil, errkind.Wrap(errkind.Config, fmt.Sprintf("config: %s entry %q", key, s), err)
		}
		out = append(out, a)
	}
	return out, nil
}

// addressFloatMapEnv parses PRICE_USD_OVERRIDES-shaped entries:
// "addr1=1.23,addr2=0.5".
func addressFloatMapEnv(key string) (map[domain.Address]float64, error) {
	out := make(map[domain.Address]float64)
	for _, entry := range splitList(env.Get(key, "")) {
		addrStr, valStr, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, errkind.New(errkind.Config, fmt.Sprintf("config: %s entry %q missing '='", key, entry))
		}
		a, err := domain.ParseAddress(addrStr)
		if err != nil {
			return nil, errkind.Wrap(errkind.Config, fmt.Sprintf("config: %s entry %q", key, entry), err)
		}
		v, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return nil, errkind.Wrap(errkind.Config, fmt.Sprintf("config: %s entry %q", key, entry), err)
		}
		out[a] = v
	}
	return out, nil
}

// reserveParamOverridesEnv parses RESERVE_PARAM_OVERRIDES-shaped entries:
// "addr1=5000:10500,addr2=7500:11000" (close_factor_bps:liquidation_bonus_bps).
func reserveParamOverridesEnv(key string) (map[domain.Address]domain.ReserveParams, error) {
	out := make(map[domain.Address]domain.ReserveParams)
	for _, entry := range splitList(env.Get(key, "")) {
		addrStr, paramsStr, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, errkind.New(errkind.Config, fmt.Sprintf("config: %s entry %q missing '='", key, entry))
		}
		a, err := domain.ParseAddress(addrStr)
		if err != nil {
			return nil, errkind.Wrap(errkind.Config, fmt.Sprintf("config: %s entry %q", key, entry), err)
		}
		closeStr, bonusStr, ok := strings.Cut(paramsStr, ":")
		if !ok {
			return nil, errkind.New(errkind.Config, fmt.Sprintf("config: %s entry %q missing ':'", key, entry))
		}
		closeFactor, err := strconv.ParseUint(closeStr, 10, 32)
		if err != nil {
			return nil, errkind.Wrap(errkind.Config, fmt.Sprintf("config: %s entry %q", key, entry), err)
		}
		bonus, err := strconv.ParseUint(bonusStr, 10, 32)
		if err != nil {
			return nil, errkind.Wrap(errkind.Config, fmt.Sprintf("config: %s entry %q", key, entry), err)
		}
		params := domain.ReserveParams{CloseFactorBps: uint32(closeFactor), LiquidationBonusBps: uint32(bonus)}
		if err := params.Validate(); err != nil {
			return nil, errkind.Wrap(errkind.Config, fmt.Sprintf("config: %s entry %q", key, entry), err)
		}
		out[a] = params
	}
	return out, nil
}
