package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"euclidhub/core"
)

// Handlers wraps the router the factory-facing server dispatches into.
// Grounded on the teacher's bridge/relayer handler shape
// (core/cross_chain.go's RegisterBridge/LockAndMint/BurnAndRelease), but
// the domain objects are ChainIbcExecuteMsg packets dispatched to
// core.Router rather than bridge/asset opcodes.
type Handlers struct {
	Router *core.Router
}

// packetEnvelope is the wire shape of one ChainIbcExecuteMsg (spec §6.1),
// with every variant's fields flattened and selected by Kind — mirroring
// how the CosmWasm-side JSON enum would serialize (one active field set,
// the rest omitted).
type packetEnvelope struct {
	Kind core.PacketKind `json:"kind"`
	TxId core.TxId       `json:"tx_id"`

	Sender              core.CrossChainUser            `json:"sender"`
	Pair                *pairDTO                        `json:"pair,omitempty"`
	Token               core.Token                      `json:"token,omitempty"`
	T1Amt               uint64                          `json:"t1_amt,omitempty"`
	T2Amt               uint64                          `json:"t2_amt,omitempty"`
	SlippageBps         uint16                          `json:"slippage_bps,omitempty"`
	LpAmt               uint64                          `json:"lp_amt,omitempty"`
	AssetIn             core.Token                      `json:"asset_in,omitempty"`
	AmountIn            uint64                          `json:"amount_in,omitempty"`
	AssetOut            core.Token                      `json:"asset_out,omitempty"`
	MinAmountOut        uint64                          `json:"min_amount_out,omitempty"`
	Swaps               []core.NextSwapPair             `json:"swaps,omitempty"`
	Amount              uint64                          `json:"amount,omitempty"`
	CrossChainAddresses []core.CrossChainUserWithLimit   `json:"cross_chain_addresses,omitempty"`
	PartnerFeeBps       uint16                          `json:"partner_fee_bps,omitempty"`
	TimeoutSeconds      int                             `json:"timeout_seconds,omitempty"`
}

type pairDTO struct {
	Token1 core.Token `json:"token_1"`
	Token2 core.Token `json:"token_2"`
}

func (p pairDTO) toPair() (core.Pair, error) { return core.NewPair(p.Token1, p.Token2) }

type ackEnvelope struct {
	Ok  interface{} `json:"ok,omitempty"`
	Err string      `json:"error,omitempty"`
}

func writeAckOk(w http.ResponseWriter, v interface{}) {
	writeJSON(w, ackEnvelope{Ok: v})
}

func writeAckErr(w http.ResponseWriter, err error) {
	writeJSON(w, ackEnvelope{Err: err.Error()})
}

// HandleMsg dispatches an inbound ChainIbcExecuteMsg per spec §4.1. All
// business-logic errors are returned as a 200-status error-ack, matching
// "errors on the hub side never panic the hub — they produce an
// error-ack the factory understands" (spec §4.1 Failure semantics); only
// malformed request bodies get a 4xx.
func (h *Handlers) HandleMsg(w http.ResponseWriter, r *http.Request) {
	chainUid := core.NormalizeChainUid(mux.Vars(r)["chain_uid"])

	var env packetEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := core.ValidatePacketKind(env.Kind); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	env.Sender.ChainUid = chainUid

	switch env.Kind {
	case core.KindRequestPoolCreation:
		h.handleRequestPoolCreation(w, env)
	case core.KindAddLiquidity:
		h.handleAddLiquidity(w, env)
	case core.KindRemoveLiquidity:
		h.handleRemoveLiquidity(w, env)
	case core.KindSwap:
		h.handleSwap(w, env)
	case core.KindWithdraw:
		h.handleWithdraw(w, env)
	default:
		writeAckErr(w, core.ErrAssetDoesNotExist)
	}
}

func (h *Handlers) handleRequestPoolCreation(w http.ResponseWriter, env packetEnvelope) {
	if env.Pair == nil {
		writeAckErr(w, core.ErrInvalidTokenID)
		return
	}
	pair, err := env.Pair.toPair()
	if err != nil {
		writeAckErr(w, err)
		return
	}
	fee := core.Fee{LPFeeBps: 20, EuclidFeeBps: 10}
	vlp, err := h.Router.RequestPoolCreation(env.Sender, pair, fee, env.TxId)
	if err != nil {
		writeAckErr(w, err)
		return
	}
	writeAckOk(w, vlp.Snapshot())
}

func (h *Handlers) handleAddLiquidity(w http.ResponseWriter, env packetEnvelope) {
	if env.Pair == nil {
		writeAckErr(w, core.ErrInvalidTokenID)
		return
	}
	pair, err := env.Pair.toPair()
	if err != nil {
		writeAckErr(w, err)
		return
	}
	minted, err := h.Router.AddLiquidity(env.Sender, pair, env.T1Amt, env.T2Amt, env.SlippageBps, env.TxId)
	if err != nil {
		writeAckErr(w, err)
		return
	}
	writeAckOk(w, map[string]uint64{"minted": minted})
}

func (h *Handlers) handleRemoveLiquidity(w http.ResponseWriter, env packetEnvelope) {
	if env.Pair == nil {
		writeAckErr(w, core.ErrInvalidTokenID)
		return
	}
	pair, err := env.Pair.toPair()
	if err != nil {
		writeAckErr(w, err)
		return
	}
	out1, out2, err := h.Router.RemoveLiquidity(env.Sender, pair, env.LpAmt, env.TxId)
	if err != nil {
		writeAckErr(w, err)
		return
	}
	writeAckOk(w, map[string]uint64{"out_1": out1, "out_2": out2})
}

func (h *Handlers) handleSwap(w http.ResponseWriter, env packetEnvelope) {
	dest := env.Sender
	if len(env.CrossChainAddresses) > 0 {
		dest = env.CrossChainAddresses[0].User
	}
	req := core.SwapRequest{
		Sender:        env.Sender,
		AssetIn:       env.AssetIn,
		AmountIn:      env.AmountIn,
		AssetOut:      env.AssetOut,
		MinAmountOut:  env.MinAmountOut,
		Swaps:         env.Swaps,
		Destination:   dest,
		PartnerFeeBps: env.PartnerFeeBps,
		TxId:          env.TxId,
	}
	out, release, err := h.Router.Swap(req)
	if err != nil {
		writeAckErr(w, err)
		return
	}
	writeAckOk(w, map[string]interface{}{"amount_out": out, "release": release})
}

func (h *Handlers) handleWithdraw(w http.ResponseWriter, env packetEnvelope) {
	releases, err := h.Router.Withdraw(env.Sender, env.Token, env.Amount, env.CrossChainAddresses, env.TxId)
	if err != nil {
		writeAckErr(w, err)
		return
	}
	writeAckOk(w, releases)
}

// GetChain returns a registered chain's record.
func (h *Handlers) GetChain(w http.ResponseWriter, r *http.Request) {
	uid := core.NormalizeChainUid(mux.Vars(r)["uid"])
	chain, err := h.Router.GetChain(uid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, chain)
}

// GetVlp returns a vlp's current snapshot for (token1, token2).
func (h *Handlers) GetVlp(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	vlp, err := h.Router.GetVlp(core.Token(vars["token1"]), core.Token(vars["token2"]))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, vlp.Snapshot())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
