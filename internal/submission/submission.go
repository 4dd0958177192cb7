// Package submission submits a signed transaction via the public or
// private endpoint (racing a relay list if configured), polls for a
// receipt, and bumps-and-resigns under replace-by-fee until a receipt
// lands or the bump budget is exhausted.
package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	evmcrypto "github.com/nodies-labs/liqsentinel/internal/pkg/crypto"
	"github.com/nodies-labs/liqsentinel/internal/pkg/errkind"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
	"github.com/nodies-labs/liqsentinel/internal/txbuilder"
)

// Config holds the RBF and submission policy constants.
type Config struct {
	RBFBumpFactor    float64 // default 1.20
	RBFIntervalSec   time.Duration
	RBFMaxBumps      int
	ReceiptTimeout   time.Duration
	ReceiptPollEvery time.Duration // default ~200ms

	SubmitPrivate bool
	RelayURLs     []string // if set, raced in place of the single public/private send

	// MaxSlippageBps is the configured policy slippage used to derive the
	// sandwich guard's threshold.
	MaxSlippageBps uint32
}

// DefaultConfig returns the documented RBF defaults.
func DefaultConfig() Config {
	return Config{
		RBFBumpFactor:    1.20,
		RBFIntervalSec:   3 * time.Second,
		RBFMaxBumps:      3,
		ReceiptTimeout:   15 * time.Second,
		ReceiptPollEvery: 200 * time.Millisecond,
	}
}

// sandwichGuardMultiplier is the factor applied to max_slippage_bps to
// derive the price-impact threshold above which submission is refused
// outright.
const sandwichGuardMultiplier = 1.5

// Pipeline drives one submission attempt (including its RBF bumps) to
// completion. It holds no per-attempt state; Submit is safe to call
// concurrently for independent transactions, each with its own nonce from
// the shared txbuilder.NonceCounter.
type Pipeline struct {
	cfg     Config
	rpc     outbound.RPCClient
	builder *txbuilder.Builder
	priv    *evmcrypto.PrivateKey
	events  outbound.EventSink
}

func New(cfg Config, rpc outbound.RPCClient, builder *txbuilder.Builder, priv *evmcrypto.PrivateKey, events outbound.EventSink) *Pipeline {
	return &Pipeline{cfg: cfg, rpc: rpc, builder: builder, priv: priv, events: events}
}

// Result is the outcome of a completed submission attempt.
type Result struct {
	TxHash  string
	Bumps   int
	Receipt json.RawMessage
}

// Submit signs and broadcasts fields, polling for a receipt and bumping
// fees under RBF until one lands or the bump budget is exhausted.
// observedPriceImpactBps is the Route & Quote Engine's quoted price impact
// for the chosen route, checked against the sandwich guard before any
// network call.
func (p *Pipeline) Submit(ctx context.Context, fields domain.TransactionFields, observedPriceImpactBps uint32) (Result, error) {
	if err := p.checkSandwichGuard(observedPriceImpactBps); err != nil {
		return Result{}, err
	}

	current := fields
	for bump := 0; ; bump++ {
		signed, err := txbuilder.Sign(current, p.priv)
		if err != nil {
			return Result{}, errkind.Wrap(errkind.Signing, "submission: sign", err)
		}

		txHash, err := p.broadcast(ctx, signed.RawHex)
		if err != nil {
			return Result{}, errkind.Wrap(errkind.Submission, "submission: broadcast", err)
		}
		p.emit(ctx, outbound.EventTxSubmitted, map[string]any{
			"tx_hash": txHash,
			"nonce":   current.Nonce,
			"bump":    bump,
		})

		receipt, err := p.pollReceipt(ctx, txHash)
		if err == nil {
			p.emit(ctx, outbound.EventTxReceipt, map[string]any{"tx_hash": txHash, "bump": bump})
			return Result{TxHash: txHash, Bumps: bump, Receipt: receipt}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		if bump >= p.cfg.RBFMaxBumps {
			return Result{}, errkind.New(errkind.Submission, fmt.Sprintf("submission: exhausted %d RBF bumps without a receipt", p.cfg.RBFMaxBumps))
		}

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(p.cfg.RBFIntervalSec):
		}

		bumped, err := p.builder.Rebuild(ctx, current, p.cfg.RBFBumpFactor)
		if err != nil {
			return Result{}, errkind.Wrap(errkind.Submission, "submission: rbf rebuild", err)
		}
		p.emit(ctx, outbound.EventTxRBFBump, map[string]any{
			"prev_tx_hash":   txHash,
			"nonce":          bumped.Nonce,
			"bump":           bump + 1,
			"max_fee":        bumped.MaxFeePerGas.String(),
			"max_prio_fee":   bumped.MaxPriorityFeePerGas.String(),
		})
		current = bumped
	}
}

func (p *Pipeline) checkSandwichGuard(observedPriceImpactBps uint32) error {
	threshold := float64(p.cfg.MaxSlippageBps) * sandwichGuardMultiplier
	if float64(observedPriceImpactBps) > threshold {
		return errkind.New(errkind.Submission, fmt.Sprintf("submission: sandwich guard tripped: observed price impact %d bps exceeds %.0f bps threshold", observedPriceImpactBps, threshold))
	}
	return nil
}

// broadcast races rawHex across the relays when RelayURLs is set, and
// otherwise sends it once via the private or public endpoint (per
// SubmitPrivate); it returns the first non-error response.
func (p *Pipeline) broadcast(ctx context.Context, rawHex string) (string, error) {
	if len(p.cfg.RelayURLs) == 0 {
		if p.cfg.SubmitPrivate {
			return p.rpc.SendRawPrivate(ctx, rawHex)
		}
		return p.rpc.SendRawPublic(ctx, rawHex)
	}
	return p.raceRelays(ctx, rawHex)
}

// raceRelays submits to the private endpoint once per configured relay
// URL concurrently (the RPCClient port abstracts the relay's actual
// transport), racing the relays and accepting whichever responds first
// without an error.
func (p *Pipeline) raceRelays(ctx context.Context, rawHex string) (string, error) {
	type outcome struct {
		hash string
		err  error
	}
	results := make(chan outcome, len(p.cfg.RelayURLs))
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for range p.cfg.RelayURLs {
		go func() {
			hash, err := p.rpc.SendRawPrivate(raceCtx, rawHex)
			results <- outcome{hash: hash, err: err}
		}()
	}

	var lastErr error
	for i := 0; i < len(p.cfg.RelayURLs); i++ {
		select {
		case res := <-results:
			if res.err == nil {
				return res.hash, nil
			}
			lastErr = res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("all relays failed: %w", lastErr)
}

// pollReceipt polls eth_getTransactionReceipt at ReceiptPollEvery until a
// non-nil receipt arrives or ReceiptTimeout elapses.
func (p *Pipeline) pollReceipt(ctx context.Context, txHash string) (json.RawMessage, error) {
	deadline := time.NewTimer(p.cfg.ReceiptTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.cfg.ReceiptPollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, errkind.New(errkind.Submission, "submission: receipt timeout")
		case <-ticker.C:
			receipt, err := p.rpc.TransactionReceipt(ctx, txHash)
			if err != nil {
				continue
			}
			if receipt != nil {
				return receipt, nil
			}
		}
	}
}

func (p *Pipeline) emit(ctx context.Context, kind outbound.EventKind, fields map[string]any) {
	if p.events == nil {
		return
	}
	_ = p.events.Publish(ctx, outbound.Event{Kind: kind, Timestamp: time.Now(), Fields: fields})
}
