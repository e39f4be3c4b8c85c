package core

// Router — the hub's sole dispatcher (spec §4.1). Grounded on the
// teacher's core/cross_chain.go (ModuleAddress, authorization checks,
// Broadcast-on-mutation) and core/escrow.go (balance bookkeeping shape),
// generalized from "multi-party escrow contract" down to the spec's
// simple map<(ChainUid,Token), u128> escrow counter, and from
// core/cross_chain_transactions.go's tx-correlation idea for the
// pending-request arena.

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// escrowKey identifies one (chain_uid, token) escrow counter.
type escrowKey struct {
	ChainUid ChainUid
	Token    Token
}

// PendingRequestKind enumerates the kinds of in-flight router-originated
// requests tracked until ack or timeout (spec §3.2).
type PendingRequestKind string

const (
	PendingAddLiquidity    PendingRequestKind = "AddLiquidity"
	PendingRemoveLiquidity PendingRequestKind = "RemoveLiquidity"
	PendingSwap            PendingRequestKind = "Swap"
	PendingWithdraw        PendingRequestKind = "Withdraw"
	PendingEscrowRegister  PendingRequestKind = "EscrowRegister"
	PendingFactoryRegister PendingRequestKind = "FactoryRegister"
)

// PendingRequest is one in-flight cross-chain action, kept until its
// terminal ack (success or timeout) resolves it (spec §3.2, invariant 7).
type PendingRequest struct {
	TxId    TxId
	Kind    PendingRequestKind
	Sender  CrossChainUser
	Payload interface{}
}

// RouterState is the Router's singleton configuration record (spec §3.2).
type RouterState struct {
	Admin                 Address
	VlpCodeID             uint64
	VirtualBalanceAddress Address
	Locked                bool
}

// ReleaseEscrow is the HubIbcExecuteMsg variant emitted when the hub
// authorizes a factory to release real tokens to a recipient (spec §6.2).
type ReleaseEscrow struct {
	ChainUid  ChainUid
	Sender    CrossChainUser
	Amount    uint64
	Token     Token
	ToAddress Address
	TxId      TxId
}

// Router is the hub dispatcher: chain registry, VLP lifecycle, escrow
// orchestration, and virtual-balance mint/burn authority.
type Router struct {
	mu sync.Mutex

	state   RouterState
	chains  *ChainRegistry
	vlps    map[string]*VLP // keyed by Pair.Key()
	escrow  map[escrowKey]uint64
	pending map[TxId]*PendingRequest

	vbl     *VirtualBalanceLedger
	metrics *HubMetrics
	log     *logrus.Logger
}

// NewRouter constructs a Router with admin as its initial administrator.
func NewRouter(admin Address, vbl *VirtualBalanceLedger, metrics *HubMetrics, log *logrus.Logger) *Router {
	if log == nil {
		log = logrus.New()
	}
	return &Router{
		state:   RouterState{Admin: admin, VirtualBalanceAddress: Address("virtual-balance-ledger")},
		chains:  NewChainRegistry(),
		vlps:    make(map[string]*VLP),
		escrow:  make(map[escrowKey]uint64),
		pending: make(map[TxId]*PendingRequest),
		vbl:     vbl,
		metrics: metrics,
		log:     log,
	}
}

func (r *Router) requireAdmin(caller Address) error {
	if caller != r.state.Admin {
		return ErrUnauthorized
	}
	return nil
}

func (r *Router) requireUnlocked() error {
	if r.state.Locked {
		return ErrContractLocked
	}
	return nil
}

// GetState returns a copy of the router's singleton state.
func (r *Router) GetState() RouterState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// UpdateLock toggles the global lock bit. Admin only; not itself
// lock-gated (spec §4.1).
func (r *Router) UpdateLock(caller Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	r.state.Locked = !r.state.Locked
	return nil
}

// RouterStateUpdate carries the optional partial-update fields for
// UpdateRouterState.
type RouterStateUpdate struct {
	Admin                 *Address
	VlpCodeID             *uint64
	VirtualBalanceAddress *Address
	Locked                *bool
}

// UpdateRouterState partially updates the router's singleton state. Admin
// only; not itself lock-gated (spec §4.1).
func (r *Router) UpdateRouterState(caller Address, upd RouterStateUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	if upd.Admin != nil {
		r.state.Admin = *upd.Admin
	}
	if upd.VlpCodeID != nil {
		r.state.VlpCodeID = *upd.VlpCodeID
	}
	if upd.VirtualBalanceAddress != nil {
		r.state.VirtualBalanceAddress = *upd.VirtualBalanceAddress
	}
	if upd.Locked != nil {
		r.state.Locked = *upd.Locked
	}
	return nil
}

// RegisterFactory binds a ChainUid to a factory address and transport.
// Admin only; locked-gated; fails with ErrChainAlreadyExists on reuse.
func (r *Router) RegisterFactory(caller Address, chain Chain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	if err := r.requireUnlocked(); err != nil {
		return err
	}
	if err := r.chains.Register(chain); err != nil {
		return err
	}
	if data, err := marshalEvent("chain_registered", chain); err == nil {
		_ = Broadcast(TopicChainRegistry, data)
	}
	r.log.WithField("chain_uid", chain.ChainUid).Info("factory registered")
	zap.L().Sugar().Infow("chain registered", "chain_uid", chain.ChainUid, "chain_type", chain.ChainType)
	return nil
}

// UpdateFactoryChannel rebinds an IBC chain's channel pair. Admin only;
// requires an IBC chain; locked-gated.
func (r *Router) UpdateFactoryChannel(caller Address, uid ChainUid, fromHub, fromFactory string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	if err := r.requireUnlocked(); err != nil {
		return err
	}
	if err := r.chains.UpdateChannel(uid, fromHub, fromFactory); err != nil {
		return err
	}
	zap.L().Sugar().Infow("factory channel rebound", "chain_uid", uid, "from_hub", fromHub, "from_factory", fromFactory)
	return nil
}

// GetChain returns the chain record for uid.
func (r *Router) GetChain(uid ChainUid) (Chain, error) { return r.chains.Get(uid) }

// GetAllChains returns every registered chain.
func (r *Router) GetAllChains() []Chain { return r.chains.All() }

// GetVlp resolves the VLP instantiated for (token1, token2), regardless
// of argument order (spec invariant 5: pair canonicality).
func (r *Router) GetVlp(t1, t2 Token) (*VLP, error) {
	pair, err := NewPair(t1, t2)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vlps[pair.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVlpNotFound, pair.Key())
	}
	return v, nil
}

// GetAllVlps returns snapshots of every instantiated VLP.
func (r *Router) GetAllVlps() []VLPView {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]VLPView, 0, len(r.vlps))
	for _, v := range r.vlps {
		out = append(out, v.Snapshot())
	}
	return out
}

// RequestPoolCreation loads the VLP for pair, instantiating one on first
// request, and registers sender's chain as a participant (spec §4.1).
func (r *Router) RequestPoolCreation(sender CrossChainUser, pair Pair, fee Fee, txId TxId) (*VLP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireUnlocked(); err != nil {
		return nil, err
	}
	v, ok := r.vlps[pair.Key()]
	if !ok {
		var err error
		v, err = NewVLP(pair, fee, r.state.Admin, r.log)
		if err != nil {
			return nil, &InstantiateError{Pair: pair, Err: err}
		}
		r.vlps[pair.Key()] = v
		if data, err := marshalEvent("vlp_instantiated", pair); err == nil {
			_ = Broadcast(TopicVlpRegistry, data)
		}
	}
	if err := v.RegisterPool(sender); err != nil {
		return nil, &PoolInstantiateFailed{Pair: pair, Err: err}
	}
	return v, nil
}

// AddLiquidity credits escrow for the deposited amounts and forwards to
// the pair's VLP (spec §4.1).
func (r *Router) AddLiquidity(sender CrossChainUser, pair Pair, t1Amt, t2Amt uint64, slippageBps uint16, txId TxId) (uint64, error) {
	r.mu.Lock()
	if err := r.requireUnlocked(); err != nil {
		r.mu.Unlock()
		return 0, err
	}
	v, ok := r.vlps[pair.Key()]
	if !ok {
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrVlpNotFound, pair.Key())
	}
	r.escrow[escrowKey{sender.ChainUid, pair.Token1}] += t1Amt
	r.escrow[escrowKey{sender.ChainUid, pair.Token2}] += t2Amt
	height := r.vbl.NextHeight()
	r.mu.Unlock()

	return v.AddLiquidity(sender, t1Amt, t2Amt, slippageBps, height)
}

// RemoveLiquidity forwards to the pair's VLP and debits escrow balances
// for the released amounts (spec §4.1).
func (r *Router) RemoveLiquidity(sender CrossChainUser, pair Pair, lpAmt uint64, txId TxId) (uint64, uint64, error) {
	r.mu.Lock()
	if err := r.requireUnlocked(); err != nil {
		r.mu.Unlock()
		return 0, 0, err
	}
	v, ok := r.vlps[pair.Key()]
	if !ok {
		r.mu.Unlock()
		return 0, 0, fmt.Errorf("%w: %s", ErrVlpNotFound, pair.Key())
	}
	height := r.vbl.NextHeight()
	r.mu.Unlock()

	out1, out2, err := v.RemoveLiquidity(sender, lpAmt, height)
	if err != nil {
		return 0, 0, err
	}

	r.mu.Lock()
	r.debitEscrow(sender.ChainUid, pair.Token1, out1)
	r.debitEscrow(sender.ChainUid, pair.Token2, out2)
	r.mu.Unlock()
	return out1, out2, nil
}

// debitEscrow must be called with r.mu held; it floors at zero rather
// than underflowing when the recorded escrow is smaller than the amount
// released (can happen if accounting drifted across partial failures).
func (r *Router) debitEscrow(uid ChainUid, token Token, amount uint64) {
	k := escrowKey{uid, token}
	if r.escrow[k] < amount {
		r.escrow[k] = 0
		return
	}
	r.escrow[k] -= amount
}

// SwapRequest carries the parameters of a factory-originated Swap packet
// (spec §6.1).
type SwapRequest struct {
	Sender        CrossChainUser
	AssetIn       Token
	AmountIn      uint64
	AssetOut      Token
	MinAmountOut  uint64
	Swaps         []NextSwapPair
	Destination   CrossChainUser
	PartnerFeeBps uint16
	TxId          TxId
}

// Swap validates every hop's VLP exists before executing any of them,
// credits source-chain escrow, mints a transient virtual balance for the
// source leg, walks the hop chain, and on the terminal hop burns the
// destination virtual balance while emitting ReleaseEscrow (spec §4.1,
// §4.2 steps 6-7).
func (r *Router) Swap(req SwapRequest) (uint64, *ReleaseEscrow, error) {
	if len(req.Swaps) == 0 {
		return 0, nil, fmt.Errorf("%w: swap requires at least one hop", ErrAssetDoesNotExist)
	}
	r.mu.Lock()
	if err := r.requireUnlocked(); err != nil {
		r.mu.Unlock()
		return 0, nil, err
	}
	hopVLPs := make([]*VLP, 0, len(req.Swaps))
	for _, hop := range req.Swaps {
		pair, err := NewPair(hop.TokenIn, hop.TokenOut)
		if err != nil {
			r.mu.Unlock()
			return 0, nil, err
		}
		v, ok := r.vlps[pair.Key()]
		if !ok {
			r.mu.Unlock()
			return 0, nil, fmt.Errorf("%w: hop %s", ErrVlpNotFound, pair.Key())
		}
		hopVLPs = append(hopVLPs, v)
	}
	r.escrow[escrowKey{req.Sender.ChainUid, req.AssetIn}] += req.AmountIn
	height := r.vbl.NextHeight()
	r.mu.Unlock()

	sourceKey := BalanceKey{ChainUid: VSLChainUid, Address: Address("router-swap-in"), Token: req.AssetIn}
	if err := r.vbl.Mint(sourceKey, req.AmountIn, height); err != nil {
		return 0, nil, err
	}

	amount := req.AmountIn
	currentAsset := req.AssetIn
	for i, v := range hopVLPs {
		minOut := uint64(0)
		if i == len(hopVLPs)-1 {
			minOut = req.MinAmountOut
		}
		outAsset, out, err := v.Swap(req.Sender, currentAsset, amount, minOut, req.PartnerFeeBps, height)
		if err != nil {
			_ = r.vbl.Burn(sourceKey, req.AmountIn, r.vbl.NextHeight())
			return 0, nil, err
		}
		if r.metrics != nil {
			r.metrics.IncSwap()
		}
		amount = out
		currentAsset = outAsset
	}
	if err := r.vbl.Burn(sourceKey, req.AmountIn, r.vbl.NextHeight()); err != nil {
		return 0, nil, err
	}

	release, err := r.releaseEscrow(req.Destination, currentAsset, amount, req.TxId)
	if err != nil {
		return 0, nil, err
	}
	return amount, release, nil
}

// SimulateSwapRequest carries the parameters of a QuerySimulateSwap query
// (spec §6.4).
type SimulateSwapRequest struct {
	AssetIn       Token
	AmountIn      uint64
	AssetOut      Token
	MinAmountOut  uint64
	Swaps         []NextSwapPair
	PartnerFeeBps uint16
}

// SimulateSwap performs the same multi-hop computation as Swap, read-only,
// validating every hop's VLP exists before walking any of them (spec
// §4.1's early-reject rule) and checking the route terminates at AssetOut
// with at least MinAmountOut, matching Swap's terminal-hop slippage check.
func (r *Router) SimulateSwap(req SimulateSwapRequest) (Token, uint64, error) {
	if len(req.Swaps) == 0 {
		return "", 0, fmt.Errorf("%w: swap requires at least one hop", ErrAssetDoesNotExist)
	}
	r.mu.Lock()
	hopVLPs := make([]*VLP, 0, len(req.Swaps))
	for _, hop := range req.Swaps {
		pair, err := NewPair(hop.TokenIn, hop.TokenOut)
		if err != nil {
			r.mu.Unlock()
			return "", 0, err
		}
		v, ok := r.vlps[pair.Key()]
		if !ok {
			r.mu.Unlock()
			return "", 0, fmt.Errorf("%w: hop %s", ErrVlpNotFound, pair.Key())
		}
		hopVLPs = append(hopVLPs, v)
	}
	r.mu.Unlock()

	amount := req.AmountIn
	currentAsset := req.AssetIn
	for _, v := range hopVLPs {
		outAsset, out, err := v.SimulateSwap(currentAsset, amount, req.PartnerFeeBps)
		if err != nil {
			return "", 0, err
		}
		amount = out
		currentAsset = outAsset
	}
	if currentAsset != req.AssetOut {
		return "", 0, fmt.Errorf("%w: route terminates at %s, expected %s", ErrAssetDoesNotExist, currentAsset, req.AssetOut)
	}
	if amount < req.MinAmountOut {
		return "", 0, &SlippageExceeded{Amount: amount, MinAmountOut: req.MinAmountOut}
	}
	return currentAsset, amount, nil
}

// releaseEscrow credits then burns a transient destination virtual
// balance (an audited mint/burn pair, per spec §9's snapshotting design
// note) and emits the HubIbcExecuteMsg::ReleaseEscrow packet.
func (r *Router) releaseEscrow(dest CrossChainUser, token Token, amount uint64, txId TxId) (*ReleaseEscrow, error) {
	height := r.vbl.NextHeight()
	destKey := BalanceKey{ChainUid: dest.ChainUid, Address: dest.Address, Token: token}
	if err := r.vbl.Mint(destKey, amount, height); err != nil {
		zap.L().Sugar().Errorw("escrow release mint failed", "tx_id", txId, "chain_uid", dest.ChainUid, "token", token, "err", err)
		return nil, err
	}
	if err := r.vbl.Burn(destKey, amount, r.vbl.NextHeight()); err != nil {
		zap.L().Sugar().Errorw("escrow release burn failed", "tx_id", txId, "chain_uid", dest.ChainUid, "token", token, "err", err)
		return nil, err
	}
	release := &ReleaseEscrow{ChainUid: dest.ChainUid, Sender: dest, Amount: amount, Token: token, ToAddress: dest.Address, TxId: txId}
	if data, err := marshalEvent("release_escrow", release); err == nil {
		_ = Broadcast(TopicEscrowRelease, data)
	}
	zap.L().Sugar().Infow("escrow released", "tx_id", txId, "chain_uid", dest.ChainUid, "token", token, "amount", amount)
	return release, nil
}

// Withdraw burns sender's virtual balance and schedules release packets
// to destinations in priority order, each bounded by its optional limit
// (spec §4.1).
func (r *Router) Withdraw(sender CrossChainUser, token Token, amount uint64, destinations []CrossChainUserWithLimit, txId TxId) ([]*ReleaseEscrow, error) {
	if amount == 0 {
		return nil, ErrZeroAssetAmount
	}
	height := r.vbl.NextHeight()
	key := BalanceKey{ChainUid: sender.ChainUid, Address: sender.Address, Token: token}
	if err := r.vbl.Burn(key, amount, height); err != nil {
		return nil, err
	}

	remaining := amount
	releases := make([]*ReleaseEscrow, 0, len(destinations))
	for _, d := range destinations {
		if remaining == 0 {
			break
		}
		take := remaining
		if d.Limit != nil && *d.Limit < take {
			take = *d.Limit
		}
		rel, err := r.releaseEscrow(d.User, token, take, txId)
		if err != nil {
			return releases, err
		}
		releases = append(releases, rel)
		remaining -= take
	}
	return releases, nil
}

// EscrowBalance returns the hub's recorded escrow for (chainUid, token).
func (r *Router) EscrowBalance(uid ChainUid, token Token) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.escrow[escrowKey{uid, token}]
}

// PendingCount returns the number of unresolved pending requests, used by
// the metrics collector.
func (r *Router) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// trackPending registers a pending request under its tx_id. An existing
// entry for the same tx_id is replaced; no error is reported.
func (r *Router) trackPending(pr *PendingRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[pr.TxId] = pr
}

// resolvePending atomically removes the pending request for txId,
// guaranteeing spec invariant 7 (at-most-once ack processing): a second
// resolution attempt for the same tx_id is a no-op.
func (r *Router) resolvePending(txId TxId) (*PendingRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr, ok := r.pending[txId]
	if ok {
		delete(r.pending, txId)
	}
	return pr, ok
}
