package core

// VLP — the constant-product Virtual Liquidity Pool state machine (spec
// §4.2). Grounded on the teacher's core/liquidity_pools.go (AMM/Pool pair,
// fee-in-basis-points swap, ledger.Snapshot-style atomicity via a single
// struct mutex) and core/amm.go's multi-hop routing idea, but reworked
// around the spec's per-chain sub-reserve accounting rather than a single
// global reserve pair, and bps/10000 fees rather than the original Rust
// source's integer-percent fees (spec.md is authoritative where the two
// diverge — see DESIGN.md).

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// chainReserves holds one chain's contribution to a VLP's two reserves.
type chainReserves struct {
	R1 uint64
	R2 uint64
}

// VLP holds and evolves the liquidity for one Pair.
type VLP struct {
	mu sync.RWMutex

	pair  Pair
	admin Address
	fee   Fee

	totalReserve1      uint64
	totalReserve2      uint64
	totalLPTokens      uint64
	perChainReserves   map[ChainUid]*chainReserves
	perChainLPTokens   map[ChainUid]uint64
	totalFeesCollected uint64
	lastUpdatedHeight  uint64

	log *logrus.Logger
}

// NewVLP constructs an empty VLP for pair, owned by admin.
func NewVLP(pair Pair, fee Fee, admin Address, log *logrus.Logger) (*VLP, error) {
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
	}
	return &VLP{
		pair:             pair,
		admin:            admin,
		fee:              fee,
		perChainReserves: make(map[ChainUid]*chainReserves),
		perChainLPTokens: make(map[ChainUid]uint64),
		log:              log,
	}, nil
}

// Pair returns the token pair this VLP serves.
func (v *VLP) Pair() Pair { return v.pair }

// reserveFor must be called with v.mu held; it lazily creates the
// per-chain entry on first touch.
func (v *VLP) reserveFor(uid ChainUid) *chainReserves {
	cr, ok := v.perChainReserves[uid]
	if !ok {
		cr = &chainReserves{}
		v.perChainReserves[uid] = cr
	}
	return cr
}

// RegisterPool records chain as a known participant with zero sub-reserves.
// Idempotent: re-registering an existing participant is a no-op (spec §9
// Open Question (b), resolved in favor of idempotency).
func (v *VLP) RegisterPool(sender CrossChainUser) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.perChainReserves[sender.ChainUid]; ok {
		return nil
	}
	v.perChainReserves[sender.ChainUid] = &chainReserves{}
	if _, ok := v.perChainLPTokens[sender.ChainUid]; !ok {
		v.perChainLPTokens[sender.ChainUid] = 0
	}
	return nil
}

// AddLiquidity implements spec §4.2's AddLiquidity, minting LP tokens
// proportional (or isqrt-based for an empty pool) to the deposited amounts.
func (v *VLP) AddLiquidity(sender CrossChainUser, t1Amt, t2Amt uint64, slippageBps uint16, height uint64) (uint64, error) {
	if t1Amt == 0 || t2Amt == 0 {
		return 0, ErrZeroAssetAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	var minted uint64
	if v.totalReserve1 == 0 && v.totalReserve2 == 0 {
		product := t1Amt * t2Amt
		root := isqrt(product)
		if root <= MinimumLiquidity {
			return 0, fmt.Errorf("%w: initial deposit too small to clear minimum liquidity lock", ErrInsufficientDeposit)
		}
		minted = root - MinimumLiquidity
	} else {
		// ratio = t1/t2 vs pool_ratio = R1/R2, compared as cross-multiplication
		// to avoid integer division before the comparison.
		lhs := t1Amt * v.totalReserve2
		rhs := t2Amt * v.totalReserve1
		diff := lhs - rhs
		if rhs > lhs {
			diff = rhs - lhs
		}
		// |pool_ratio - ratio| > slippage_bps/10000 * pool_ratio
		// <=> diff / (t2Amt * R1) > slippageBps/10000  (cross-multiplied form)
		allowed := (rhs * uint64(slippageBps)) / 10_000
		if diff > allowed {
			return 0, ErrLiquiditySlippage
		}
		minted = minU64(t1Amt*v.totalLPTokens/v.totalReserve1, t2Amt*v.totalLPTokens/v.totalReserve2)
	}

	cr := v.reserveFor(sender.ChainUid)
	cr.R1 += t1Amt
	cr.R2 += t2Amt
	v.totalReserve1 += t1Amt
	v.totalReserve2 += t2Amt
	v.totalLPTokens += minted
	v.perChainLPTokens[sender.ChainUid] += minted
	v.lastUpdatedHeight = height
	v.log.WithFields(logrus.Fields{
		"pair": v.pair.Key(), "chain": sender.ChainUid, "minted": minted,
	}).Info("vlp add liquidity")
	return minted, nil
}

// RemoveLiquidity implements spec §4.2's RemoveLiquidity, including the
// rounding-shortfall proration rule resolved in spec §9 / DESIGN.md.
func (v *VLP) RemoveLiquidity(sender CrossChainUser, lpAmt uint64, height uint64) (uint64, uint64, error) {
	if lpAmt == 0 {
		return 0, 0, ErrZeroAssetAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.totalLPTokens == 0 {
		return 0, 0, fmt.Errorf("%w: pool empty", ErrInsufficientFunds)
	}
	if v.perChainLPTokens[sender.ChainUid] < lpAmt {
		return 0, 0, fmt.Errorf("%w: chain %s holds insufficient lp", ErrInsufficientFunds, sender.ChainUid)
	}

	out1 := v.totalReserve1 * lpAmt / v.totalLPTokens
	out2 := v.totalReserve2 * lpAmt / v.totalLPTokens

	v.drainChainReserve(sender.ChainUid, out1, true)
	v.drainChainReserve(sender.ChainUid, out2, false)

	v.totalReserve1 -= out1
	v.totalReserve2 -= out2
	v.totalLPTokens -= lpAmt
	v.perChainLPTokens[sender.ChainUid] -= lpAmt
	v.lastUpdatedHeight = height
	v.log.WithFields(logrus.Fields{
		"pair": v.pair.Key(), "chain": sender.ChainUid, "out1": out1, "out2": out2,
	}).Info("vlp remove liquidity")
	return out1, out2, nil
}

// drainChainReserve removes amount of token 1 (first=true) or token 2
// (first=false) from sender's sub-reserve, draining it to zero first and
// then spreading any remaining shortfall pro-rata (by current share of
// that token's total sub-reserves) over the other chains' sub-reserves.
// This is the proration rule resolved for spec §9 Open Question (a).
func (v *VLP) drainChainReserve(sender ChainUid, amount uint64, first bool) {
	if amount == 0 {
		return
	}
	own := v.reserveFor(sender)
	var ownBal *uint64
	if first {
		ownBal = &own.R1
	} else {
		ownBal = &own.R2
	}
	if *ownBal >= amount {
		*ownBal -= amount
		return
	}
	shortfall := amount - *ownBal
	*ownBal = 0

	// Pro-rate the shortfall across the other chains by their current
	// share of this token's remaining total. Integer division floors each
	// chain's take, then the leftover remainder (shortfall - sum(take)) is
	// handed out one unit at a time to the chains with the largest
	// fractional remainder, so the sum still matches exactly.
	type share struct {
		uid      ChainUid
		bal      uint64
		take     uint64
		remNum   uint64 // remainder numerator: shortfall*bal mod total
	}
	var others []share
	var total uint64
	for uid, cr := range v.perChainReserves {
		if uid == sender {
			continue
		}
		bal := cr.R2
		if first {
			bal = cr.R1
		}
		if bal == 0 {
			continue
		}
		others = append(others, share{uid: uid, bal: bal})
		total += bal
	}
	if total == 0 || shortfall == 0 {
		return
	}
	var allocated uint64
	for i := range others {
		num := shortfall * others[i].bal
		others[i].take = num / total
		others[i].remNum = num % total
		allocated += others[i].take
	}
	remainder := shortfall - allocated
	sort.Slice(others, func(i, j int) bool {
		if others[i].remNum != others[j].remNum {
			return others[i].remNum > others[j].remNum
		}
		return others[i].uid < others[j].uid
	})
	for i := uint64(0); i < remainder && int(i) < len(others); i++ {
		others[i].take++
	}
	for i := range others {
		cr := v.perChainReserves[others[i].uid]
		if first {
			cr.R1 -= minU64(others[i].take, cr.R1)
		} else {
			cr.R2 -= minU64(others[i].take, cr.R2)
		}
	}
}

// Swap implements spec §4.2's single-hop Swap math. Multi-hop chaining
// across VLPs (next_swaps) is the router's responsibility (see
// core/router.go's Router.Swap), which calls Swap once per hop.
func (v *VLP) Swap(sender CrossChainUser, assetIn Token, amountIn, minOut uint64, partnerFeeBps uint16, height uint64) (Token, uint64, error) {
	if amountIn == 0 {
		return "", 0, ErrZeroAssetAmount
	}
	if err := validatePartnerFeeBps(partnerFeeBps); err != nil {
		return "", 0, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	var assetOut Token
	var resIn, resOut *uint64
	switch assetIn {
	case v.pair.Token1:
		assetOut = v.pair.Token2
		resIn, resOut = &v.totalReserve1, &v.totalReserve2
	case v.pair.Token2:
		assetOut = v.pair.Token1
		resIn, resOut = &v.totalReserve2, &v.totalReserve1
	default:
		return "", 0, fmt.Errorf("%w: %s not in pair %s", ErrAssetDoesNotExist, assetIn, v.pair.Key())
	}

	totalFeeBps := v.fee.TotalBps() + uint32(partnerFeeBps)
	feeAmount := amountIn * uint64(totalFeeBps) / 10_000
	swapAmount := amountIn - feeAmount

	k := *resIn * *resOut
	newRIn := *resIn + swapAmount
	newROut := ceilDiv(k, newRIn)
	if newROut > *resOut {
		// Degenerate (amount too small to move the pool); no output.
		newROut = *resOut
	}
	out := *resOut - newROut

	if out < minOut || out > *resOut {
		return "", 0, &SlippageExceeded{Amount: out, MinAmountOut: minOut}
	}

	// The whole fee (lp + euclid + partner) is withheld from the reserves:
	// only swapAmount is added to the input reserve, and feeAmount is
	// counted in totalFeesCollected. The euclid-fee split is computed for
	// the log line only; no virtual balance is credited with it, here or
	// in the router.
	lpFeeAmount := amountIn * uint64(v.fee.LPFeeBps) / 10_000
	euclidFeeAmount := feeAmount - lpFeeAmount

	*resIn = newRIn
	*resOut = newROut
	v.totalFeesCollected += feeAmount

	// The sender chain's sub-reserve gets the same swapAmount that was
	// added to totalReserve via newRIn (no fee portion), so
	// sum_over_chains(per_chain_reserves) stays equal to totalReserve.
	cr := v.reserveFor(sender.ChainUid)
	if assetIn == v.pair.Token1 {
		cr.R1 += swapAmount
		if cr.R2 >= out {
			cr.R2 -= out
		} else {
			cr.R2 = 0
		}
	} else {
		cr.R2 += swapAmount
		if cr.R1 >= out {
			cr.R1 -= out
		} else {
			cr.R1 = 0
		}
	}
	v.lastUpdatedHeight = height

	v.log.WithFields(logrus.Fields{
		"pair": v.pair.Key(), "asset_in": assetIn, "amount_in": amountIn,
		"out": out, "fee": feeAmount, "euclid_fee": euclidFeeAmount,
	}).Info("vlp swap")
	return assetOut, out, nil
}

// SimulateSwap performs the same computation as Swap without mutating
// state, for QuerySimulateSwap (spec §4.2).
func (v *VLP) SimulateSwap(assetIn Token, amountIn uint64, partnerFeeBps uint16) (Token, uint64, error) {
	if amountIn == 0 {
		return "", 0, ErrZeroAssetAmount
	}
	if err := validatePartnerFeeBps(partnerFeeBps); err != nil {
		return "", 0, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()

	var assetOut Token
	var resIn, resOut uint64
	switch assetIn {
	case v.pair.Token1:
		assetOut = v.pair.Token2
		resIn, resOut = v.totalReserve1, v.totalReserve2
	case v.pair.Token2:
		assetOut = v.pair.Token1
		resIn, resOut = v.totalReserve2, v.totalReserve1
	default:
		return "", 0, fmt.Errorf("%w: %s not in pair %s", ErrAssetDoesNotExist, assetIn, v.pair.Key())
	}

	totalFeeBps := v.fee.TotalBps() + uint32(partnerFeeBps)
	feeAmount := amountIn * uint64(totalFeeBps) / 10_000
	swapAmount := amountIn - feeAmount
	k := resIn * resOut
	newRIn := resIn + swapAmount
	newROut := ceilDiv(k, newRIn)
	if newROut > resOut {
		newROut = resOut
	}
	return assetOut, resOut - newROut, nil
}

// UpdateFee applies an admin fee change. Caller (router) is responsible
// for authenticating the admin.
func (v *VLP) UpdateFee(fee Fee) error {
	if err := fee.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fee = fee
	return nil
}

// VLPView is a read-only snapshot of a VLP's state, for queries and CLI
// display — the spec-domain analogue of the teacher's PoolView.
type VLPView struct {
	Pair               Pair
	Fee                Fee
	TotalReserve1      uint64
	TotalReserve2      uint64
	TotalLPTokens      uint64
	PerChainReserves   map[ChainUid][2]uint64
	PerChainLPTokens   map[ChainUid]uint64
	TotalFeesCollected uint64
	LastUpdatedHeight  uint64
}

// Snapshot returns a read-only view of the VLP's current state.
func (v *VLP) Snapshot() VLPView {
	v.mu.RLock()
	defer v.mu.RUnlock()
	perChain := make(map[ChainUid][2]uint64, len(v.perChainReserves))
	for uid, cr := range v.perChainReserves {
		perChain[uid] = [2]uint64{cr.R1, cr.R2}
	}
	perChainLP := make(map[ChainUid]uint64, len(v.perChainLPTokens))
	for uid, lp := range v.perChainLPTokens {
		perChainLP[uid] = lp
	}
	return VLPView{
		Pair:               v.pair,
		Fee:                v.fee,
		TotalReserve1:      v.totalReserve1,
		TotalReserve2:      v.totalReserve2,
		TotalLPTokens:      v.totalLPTokens,
		PerChainReserves:   perChain,
		PerChainLPTokens:   perChainLP,
		TotalFeesCollected: v.totalFeesCollected,
		LastUpdatedHeight:  v.lastUpdatedHeight,
	}
}
