package staking

import "github.com/holiman/uint256"

// percentOf returns amount*percent/100 with floor division.
func percentOf(amount, percent uint64) (uint64, error) {
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(amount), uint256.NewInt(percent))
	if overflow {
		return 0, ErrArithmeticOverflow
	}
	product.Div(product, uint256.NewInt(100))
	if !product.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return product.Uint64(), nil
}

func addAmounts(a, b uint64) (uint64, error) {
	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !sum.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return sum.Uint64(), nil
}

func subAmounts(a, b uint64) (uint64, error) {
	diff, underflow := new(uint256.Int).SubOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if underflow {
		return 0, ErrArithmeticOverflow
	}
	return diff.Uint64(), nil
}
