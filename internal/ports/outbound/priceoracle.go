package outbound

import (
	"context"

	"github.com/nodies-labs/liqsentinel/internal/domain"
)

// PriceOracle resolves a token's current USD price. Every
// implementation must apply a safe floor at 1.0 when no price is
// resolvable, so callers never divide by (or multiply against) zero.
type PriceOracle interface {
	PriceUSD(ctx context.Context, token domain.Address) (float64, error)
}
