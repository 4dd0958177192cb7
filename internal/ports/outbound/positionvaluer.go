package outbound

import (
	"context"

	"github.com/nodies-labs/liqsentinel/internal/domain"
)

// PositionUSDValue is one user's total collateral and debt, in USD, as
// resolved by an external indexer.
type PositionUSDValue struct {
	TotalCollateralUSD float64
	TotalDebtUSD       float64
}

// PositionValuer resolves a monitored user's position size in USD terms,
// feeding the Watchlist's estimated_usd_value ahead of the
// Opportunity Evaluator's close-factor sizing math.
type PositionValuer interface {
	UserPosition(ctx context.Context, user domain.Address) (PositionUSDValue, error)
}
