package core

// Message Transport & Reply Machinery (spec §4.4, §6.1-6.3). Grounded on
// the teacher's core/cross_chain.go Bridge/Proof async-relay shape
// (timeout handling, ack-vs-error outcome) and core/network.go's
// broadcast hook, generalized from "lock-and-mint bridge" to the spec's
// dual Native/IBC transport with a reply-id bookkeeping table standing in
// for CosmWasm's SubMsg reply mechanism.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// PacketKind enumerates the factory→hub and hub→factory message variants.
type PacketKind string

const (
	KindRequestPoolCreation  PacketKind = "RequestPoolCreation"
	KindRequestEscrowCreate  PacketKind = "RequestEscrowCreation"
	KindAddLiquidity         PacketKind = "AddLiquidity"
	KindRemoveLiquidity      PacketKind = "RemoveLiquidity"
	KindSwap                 PacketKind = "Swap"
	KindWithdraw             PacketKind = "Withdraw"
	KindRegisterFactory      PacketKind = "RegisterFactory"
	KindReleaseEscrow        PacketKind = "ReleaseEscrow"
)

// ChainIbcExecuteMsg is a factory→hub packet (spec §6.1). Exactly one of
// the payload fields is populated, selected by Kind; Go has no sum type,
// so this mirrors the teacher's practice of a discriminated struct rather
// than an interface hierarchy (see core/cross_chain.go's Proof).
type ChainIbcExecuteMsg struct {
	Kind PacketKind
	TxId TxId

	PoolCreation    *RequestPoolCreationMsg
	EscrowCreate    *RequestEscrowCreationMsg
	AddLiquidity    *AddLiquidityMsg
	RemoveLiquidity *RemoveLiquidityMsg
	Swap            *SwapMsg
	Withdraw        *WithdrawMsg
}

type RequestPoolCreationMsg struct {
	Sender CrossChainUser
	Pair   Pair
}

type RequestEscrowCreationMsg struct {
	Sender CrossChainUser
	Token  Token
}

type AddLiquidityMsg struct {
	Sender      CrossChainUser
	Pair        Pair
	T1Amt       uint64
	T2Amt       uint64
	SlippageBps uint16
}

type RemoveLiquidityMsg struct {
	Sender              CrossChainUser
	Pair                Pair
	LpAmt               uint64
	CrossChainAddresses []CrossChainUserWithLimit
}

type SwapMsg struct {
	Sender              CrossChainUser
	AssetIn             Token
	AmountIn            uint64
	AssetOut            Token
	MinAmountOut        uint64
	Swaps               []NextSwapPair
	CrossChainAddresses []CrossChainUserWithLimit
	PartnerFeeBps       uint16
}

type WithdrawMsg struct {
	Sender              CrossChainUser
	Token               Token
	Amount              uint64
	CrossChainAddresses []CrossChainUserWithLimit
	TimeoutSeconds      int
}

// HubIbcExecuteMsg is a hub→factory packet (spec §6.2).
type HubIbcExecuteMsg struct {
	Kind PacketKind
	TxId TxId

	RegisterFactory *RegisterFactoryMsg
	ReleaseEscrow   *ReleaseEscrow
}

type RegisterFactoryMsg struct {
	ChainUid ChainUid
}

// AckResult is the outcome half of AcknowledgementMsg[T] (spec §6.3).
// Go's lack of sum types makes an Ok-XOR-Err struct the natural analogue
// of the teacher's error-wrapping idioms (pkg/utils.Wrap) applied to the
// ack boundary specifically.
type AckResult[T any] struct {
	Ok  *T
	Err string
}

// AckOk constructs a successful AcknowledgementMsg.
func AckOk[T any](v T) AckResult[T] { return AckResult[T]{Ok: &v} }

// AckError constructs a failed AcknowledgementMsg.
func AckError[T any](err error) AckResult[T] { return AckResult[T]{Err: err.Error()} }

// IsOk reports whether the ack represents success.
func (a AckResult[T]) IsOk() bool { return a.Ok != nil }

// PendingMessage is one in-flight outbound packet awaiting ack or timeout.
// CorrelationID is a uuid stamped independently of ReplyID's bounded,
// wraparound counter, so logs/traces can follow one packet across reply-id
// reuse (the counter wraps within [low, high] and will eventually repeat).
type PendingMessage struct {
	ReplyID       uint64
	CorrelationID string
	ChainUid      ChainUid
	Payload       interface{}
	SentAt        time.Time
	Timeout       time.Duration
}

// replyRange is [low, high], used to keep hub→chain and chain→hub reply
// ids disjoint per spec §4.4/§6.6.
type replyRange struct {
	low, high uint64
	next      uint64
}

func (r *replyRange) allocate() uint64 {
	if r.next == 0 {
		r.next = r.low
	}
	id := r.next
	r.next++
	if r.next > r.high {
		r.next = r.low
	}
	return id
}

// Transport routes ChainIbcExecuteMsg/HubIbcExecuteMsg either as local
// (Native) calls or as simulated async packets (IBC-style). Native
// deliveries complete synchronously through the caller's deliver callback
// and are not recorded; only IBC-style packets are tracked, keyed by a
// reply id from the hub→chain range. The chain→hub range is set up but
// no id is allocated from it.
type Transport struct {
	mu sync.Mutex

	chains *ChainRegistry
	log    *logrus.Logger

	hubToChain   replyRange // [1001,2000]
	chainToHub   replyRange // [2001,3000]
	pendingNative map[uint64]*PendingMessage
}

// NewTransport builds a Transport bound to the router's chain registry.
func NewTransport(chains *ChainRegistry, log *logrus.Logger) *Transport {
	if log == nil {
		log = logrus.New()
	}
	return &Transport{
		chains:        chains,
		log:           log,
		hubToChain:    replyRange{low: HubReplyIDLow, high: HubReplyIDHigh},
		chainToHub:    replyRange{low: ChainReplyIDLow, high: ChainReplyIDHigh},
		pendingNative: make(map[uint64]*PendingMessage),
	}
}

// SendToFactory dispatches a hub→factory packet. Native chains resolve
// synchronously via deliver; IBC chains register a pending message and
// return immediately, with the ack arriving later via ResolveAck.
func (t *Transport) SendToFactory(uid ChainUid, msg HubIbcExecuteMsg, timeoutSeconds int, deliver func(HubIbcExecuteMsg) error) (*PendingMessage, error) {
	chain, err := t.chains.Get(uid)
	if err != nil {
		return nil, err
	}
	timeout, err := ClampTimeout(timeoutSeconds)
	if err != nil {
		return nil, err
	}

	if !chain.IsIBC() {
		if err := deliver(msg); err != nil {
			return nil, err
		}
		return nil, nil
	}

	t.mu.Lock()
	id := t.hubToChain.allocate()
	pm := &PendingMessage{
		ReplyID:       id,
		CorrelationID: uuid.NewString(),
		ChainUid:      uid,
		Payload:       msg,
		SentAt:        timeNow(),
		Timeout:       time.Duration(timeout) * time.Second,
	}
	t.pendingNative[id] = pm
	t.mu.Unlock()
	zap.L().Sugar().Infow("ibc packet queued", "reply_id", id, "correlation_id", pm.CorrelationID, "chain_uid", uid, "kind", msg.Kind)
	return pm, nil
}

// ResolveAck looks up and removes the pending message for replyID,
// implementing spec invariant 7 (at-most-once ack processing): a second
// call for the same id returns ok=false.
func (t *Transport) ResolveAck(replyID uint64) (*PendingMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pm, ok := t.pendingNative[replyID]
	if ok {
		delete(t.pendingNative, replyID)
	}
	if ok {
		zap.L().Sugar().Infow("ibc ack resolved", "reply_id", replyID, "correlation_id", pm.CorrelationID, "chain_uid", pm.ChainUid)
	} else {
		zap.L().Sugar().Warnw("ibc ack resolved for unknown or already-resolved reply id", "reply_id", replyID)
	}
	return pm, ok
}

// ExpireTimeouts scans pending messages and resolves any whose deadline
// has passed, invoking onTimeout with a synthesized error-ack for each
// (spec §4.4: "On timeout, a synthesized error-ack is fed to the same
// handler"). Intended to be driven by a periodic ticker (see RunExpiry).
func (t *Transport) ExpireTimeouts(now time.Time, onTimeout func(*PendingMessage)) {
	t.mu.Lock()
	var expired []*PendingMessage
	for id, pm := range t.pendingNative {
		if now.Sub(pm.SentAt) >= pm.Timeout {
			expired = append(expired, pm)
			delete(t.pendingNative, id)
		}
	}
	t.mu.Unlock()
	for _, pm := range expired {
		zap.L().Sugar().Warnw("ibc packet timed out", "reply_id", pm.ReplyID, "correlation_id", pm.CorrelationID, "chain_uid", pm.ChainUid)
		onTimeout(pm)
	}
}

// RunExpiry periodically calls ExpireTimeouts until ctx is cancelled.
func (t *Transport) RunExpiry(ctx context.Context, interval time.Duration, onTimeout func(*PendingMessage)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.ExpireTimeouts(timeNow(), onTimeout)
		case <-ctx.Done():
			return
		}
	}
}

// PendingCount returns the number of in-flight IBC-style messages.
func (t *Transport) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pendingNative)
}

// timeNow is a thin indirection over time.Now so tests can substitute a
// deterministic clock without reaching into package internals.
var timeNow = time.Now

// ValidatePacketKind reports whether kind is a recognized packet variant,
// used by HTTP/CLI intake to reject malformed envelopes early.
func ValidatePacketKind(kind PacketKind) error {
	switch kind {
	case KindRequestPoolCreation, KindRequestEscrowCreate, KindAddLiquidity,
		KindRemoveLiquidity, KindSwap, KindWithdraw, KindRegisterFactory, KindReleaseEscrow:
		return nil
	default:
		return fmt.Errorf("%w: unrecognized packet kind %q", ErrAssetDoesNotExist, kind)
	}
}
