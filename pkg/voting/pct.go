package voting

import "math/big"

var (
	// PctBase is 100% in fixed point.
	PctBase = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	pct16 = new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
)

// Pct converts a whole percentage into fixed point.
func Pct(percent uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(percent), pct16)
}

// isValuePct reports whether value/total is strictly above pct, using floor
// division in fixed point. A zero total never qualifies.
func isValuePct(value, total uint64, pct *big.Int) bool {
	if total == 0 {
		return false
	}

	computed := new(big.Int).Mul(new(big.Int).SetUint64(value), PctBase)
	computed.Div(computed, new(big.Int).SetUint64(total))

	return computed.Cmp(pct) > 0
}
