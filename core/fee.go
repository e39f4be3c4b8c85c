package core

import "fmt"

// Fee describes the split of a VLP's swap fee between liquidity providers
// and the protocol, and the recipient of the protocol's cut.
type Fee struct {
	LPFeeBps     uint16
	EuclidFeeBps uint16
	Recipient    CrossChainUser
}

// Validate enforces lp_fee_bps + euclid_fee_bps <= MaxFeeBps and that each
// component individually respects MaxFeeBps.
func (f Fee) Validate() error {
	if f.LPFeeBps > MaxFeeBps || f.EuclidFeeBps > MaxFeeBps {
		return fmt.Errorf("%w: fee component exceeds %d bps", ErrInvalidSlippageTolerance, MaxFeeBps)
	}
	if uint32(f.LPFeeBps)+uint32(f.EuclidFeeBps) > MaxFeeBps {
		return fmt.Errorf("%w: lp_fee_bps+euclid_fee_bps exceeds %d", ErrInvalidSlippageTolerance, MaxFeeBps)
	}
	return nil
}

// TotalBps returns the combined lp + euclid fee, excluding any per-swap
// partner fee (which is supplied separately to Swap).
func (f Fee) TotalBps() uint32 { return uint32(f.LPFeeBps) + uint32(f.EuclidFeeBps) }

// validatePartnerFeeBps enforces the MaxPartnerFeeBps bound on a per-swap
// partner fee parameter.
func validatePartnerFeeBps(bps uint16) error {
	if bps > MaxPartnerFeeBps {
		return fmt.Errorf("%w: partner fee %d exceeds %d bps", ErrInvalidSlippageTolerance, bps, MaxPartnerFeeBps)
	}
	return nil
}

// isqrt returns the integer (floor) square root of n, used for the initial
// LP mint on an empty pool.
func isqrt(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

// ceilDiv computes ceil(a/b) for non-negative integers, used by the
// constant-product swap formula so that the pool never under-charges the
// trader due to integer truncation.
func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// minU64 returns the smaller of two uint64 values.
func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
