package calldata

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/nodies-labs/liqsentinel/internal/domain"
	"github.com/nodies-labs/liqsentinel/internal/pkg/crypto/abi"
)

func bigFromInt(v int) *big.Int {
	return big.NewInt(int64(v))
}

func hexDecode(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	return hex.DecodeString(s)
}

var selectorSwapExactTokensForTokens = abi.Selector("swapExactTokensForTokens(uint256,uint256,address[],address,uint256)")

// maxUint256 is used as the router swap deadline: this calldata is always
// built and submitted within the same block cycle it was quoted for, so
// there is no separate deadline policy to enforce.
var maxUint256 = func() *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), 256)
	return v.Sub(v, big.NewInt(1))
}()

// BuildSwapExactTokensForTokens assembles a V2-style router
// swapExactTokensForTokens(amountIn, amountOutMin, path, to, deadline)
// call — the one swap shape both the Opportunity Evaluator's unwind legs
// and the Profit Consolidator's token->USDC sweep
// need.
func BuildSwapExactTokensForTokens(amountIn, amountOutMin *big.Int, path []domain.Address, to domain.Address) []byte {
	var out []byte
	out = append(out, selectorSwapExactTokensForTokens[:]...)
	out = append(out, abi.EncodeUint256(amountIn)...)
	out = append(out, abi.EncodeUint256(amountOutMin)...)
	out = append(out, abi.EncodeUint256(bigFromInt(160))...) // offset to path[]: 5 head words
	out = append(out, abi.EncodeAddress(to)...)
	out = append(out, abi.EncodeUint256(maxUint256)...)
	out = append(out, abi.EncodeAddressArray(path)...)
	return out
}
