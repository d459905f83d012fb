package fees

import (
	"errors"
	"math/big"
)

// MaxPlatformFeeBps is the hard ceiling on the configurable platform fee
// rate: 500 basis points, i.e. 5%.
const MaxPlatformFeeBps = uint32(500)

var bpsDenominator = big.NewInt(10_000)

// ErrInvalidFeeConfiguration marks fee or dispute-fee settings that violate
// the configured bounds. It is rejected before any state mutation.
var ErrInvalidFeeConfiguration = errors.New("fees: invalid fee configuration")

// ValidateRate checks a basis-point platform fee rate against the hard cap.
func ValidateRate(rateBps uint32) error {
	if rateBps > MaxPlatformFeeBps {
		return ErrInvalidFeeConfiguration
	}
	return nil
}

// Apply computes the platform fee for the supplied gross amount using integer
// floor division: amount * rateBps / 10000. The returned fee never exceeds
// the amount. Nil or non-positive amounts yield a zero fee.
func Apply(amount *big.Int, rateBps uint32) *big.Int {
	if amount == nil || amount.Sign() <= 0 || rateBps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(rateBps)))
	fee.Div(fee, bpsDenominator)
	if fee.Cmp(amount) > 0 {
		return new(big.Int).Set(amount)
	}
	return fee
}
