// Package txbuilder assembles EIP-1559 transaction fields from live
// fee-market data and signs them, using the rlp and crypto packages'
// hand-rolled codec and secp256k1 signer for the wire format.
package txbuilder

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
	"github.com/nodies-labs/liqsentinel/internal/pkg/hexutil"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

// Config holds the fee-market policy constants.
type Config struct {
	ChainID                  int64
	GasLimit                 uint64
	MinPriorityFeeWei        int64 // floor applied to eth_maxPriorityFeePerGas's suggestion
	MinFeePerGasWei          int64 // floor applied to 2*baseFee+priorityFee
}

// DefaultConfig returns the documented production defaults.
func DefaultConfig() Config {
	return Config{
		GasLimit:          1_900_000,
		MinPriorityFeeWei: 1_500_000_000, // 1.5 gwei
		MinFeePerGasWei:   1_500_000_000,
	}
}

// Builder assembles TransactionFields for one call to the executor
// contract. It holds no mutable state beyond the shared NonceCounter; every Build
// call reads fresh fee-market data.
type Builder struct {
	cfg   Config
	rpc   outbound.RPCClient
	nonce *NonceCounter
}

func New(cfg Config, rpc outbound.RPCClient, nonce *NonceCounter) *Builder {
	return &Builder{cfg: cfg, rpc: rpc, nonce: nonce}
}

// latestBlockHeader is the subset of a GetBlockByNumber response this
// package reads, matching the field names outbound.BlockHeader already
// uses for the newHeads subscription payload.
type latestBlockHeader struct {
	BaseFeePerGas string `json:"baseFeePerGas"`
}

// Build assembles the EIP-1559 fields for a call to `to` with `data`:
// nonce from the Nonce Counter, priority fee from
// eth_maxPriorityFeePerGas floored at MinPriorityFeeWei, fee cap at
// 2*latest_base_fee+priority_fee floored at MinFeePerGasWei.
func (b *Builder) Build(ctx context.Context, to domain.Address, data []byte, value *big.Int) (domain.TransactionFields, error) {
	baseFee, err := b.latestBaseFee(ctx)
	if err != nil {
		return domain.TransactionFields{}, err
	}

	priorityFee, err := b.rpc.MaxPriorityFeePerGas(ctx)
	if err != nil || priorityFee < b.cfg.MinPriorityFeeWei {
		priorityFee = b.cfg.MinPriorityFeeWei
	}

	maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
	maxFee.Add(maxFee, big.NewInt(priorityFee))
	if maxFee.Cmp(big.NewInt(b.cfg.MinFeePerGasWei)) < 0 {
		maxFee = big.NewInt(b.cfg.MinFeePerGasWei)
	}

	if value == nil {
		value = big.NewInt(0)
	}

	fields := domain.TransactionFields{
		ChainID:              b.cfg.ChainID,
		Nonce:                b.nonce.Next(),
		GasLimit:             b.cfg.GasLimit,
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: big.NewInt(priorityFee),
		To:                   to,
		Value:                value,
		Data:                 data,
	}
	if err := fields.Validate(); err != nil {
		return domain.TransactionFields{}, errkind.Wrap(errkind.Fatal, "txbuilder: built invalid fields", err)
	}
	return fields, nil
}

// Rebuild returns prev bumped for replace-by-fee: the same nonce, with both
// fee fields multiplied by bumpFactor (a ratio, e.g. 1.20) and rounded to
// the nearest wei. The fee market is not queried again.
func (b *Builder) Rebuild(ctx context.Context, prev domain.TransactionFields, bumpFactor float64) (domain.TransactionFields, error) {
	bumped := prev
	bumped.MaxFeePerGas = bumpByFactor(prev.MaxFeePerGas, bumpFactor)
	bumped.MaxPriorityFeePerGas = bumpByFactor(prev.MaxPriorityFeePerGas, bumpFactor)
	if err := bumped.Validate(); err != nil {
		return domain.TransactionFields{}, errkind.Wrap(errkind.Fatal, "txbuilder: rbf bump produced invalid fields", err)
	}
	return bumped, nil
}

func bumpByFactor(v *big.Int, factor float64) *big.Int {
	f := new(big.Float).Mul(new(big.Float).SetInt(v), big.NewFloat(factor))
	f.Add(f, big.NewFloat(0.5)) // round to the nearest wei; 1.20 is not exact in binary
	out, _ := f.Int(nil)
	return out
}

func (b *Builder) latestBaseFee(ctx context.Context) (*big.Int, error) {
	raw, err := b.rpc.GetBlockByNumber(ctx, "latest", false)
	if err != nil {
		return nil, errkind.Wrap(errkind.RPC, "txbuilder: fetch latest block", err)
	}
	var hdr latestBlockHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return nil, errkind.Wrap(errkind.Decode, "txbuilder: decode latest block", err)
	}
	if hdr.BaseFeePerGas == "" {
		return nil, errkind.New(errkind.Decode, "txbuilder: latest block missing baseFeePerGas")
	}
	v, err := hexutil.ParseInt64(hdr.BaseFeePerGas)
	if err != nil {
		return nil, errkind.Wrap(errkind.Decode, "txbuilder: parse baseFeePerGas", err)
	}
	return big.NewInt(v), nil
}
