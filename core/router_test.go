package core

import (
	"path/filepath"
	"testing"
)

func newTestRouter(t *testing.T) (*Router, Address) {
	t.Helper()
	admin := Address("admin")
	vbl, err := NewVirtualBalanceLedger(VBLConfig{WALPath: filepath.Join(t.TempDir(), "vbl.wal")})
	if err != nil {
		t.Fatalf("NewVirtualBalanceLedger: %v", err)
	}
	t.Cleanup(func() { _ = vbl.Close() })
	return NewRouter(admin, vbl, nil, nil), admin
}

// Scenario 1: register chain + create pool, pair lookup symmetric.
func TestRouterRegisterChainAndCreatePool(t *testing.T) {
	r, admin := newTestRouter(t)
	chain := Chain{ChainUid: "uid1", FactoryAddress: "f1", ChainType: ChainTypeNative}
	if err := r.RegisterFactory(admin, chain); err != nil {
		t.Fatalf("RegisterFactory: %v", err)
	}

	pair, _ := NewPair("tokA", "tokB")
	sender := CrossChainUser{ChainUid: "uid1", Address: "u1"}
	fee := Fee{LPFeeBps: 20, EuclidFeeBps: 10}
	vlp, err := r.RequestPoolCreation(sender, pair, fee, "tx1")
	if err != nil {
		t.Fatalf("RequestPoolCreation: %v", err)
	}

	got1, err := r.GetVlp("tokA", "tokB")
	if err != nil || got1 != vlp {
		t.Fatalf("GetVlp(tokA,tokB) = (%v,%v), want original vlp", got1, err)
	}
	got2, err := r.GetVlp("tokB", "tokA")
	if err != nil || got2 != vlp {
		t.Fatalf("GetVlp(tokB,tokA) = (%v,%v), want original vlp", got2, err)
	}
}

func TestRouterRegisterFactoryRequiresAdmin(t *testing.T) {
	r, _ := newTestRouter(t)
	chain := Chain{ChainUid: "uid1", ChainType: ChainTypeNative}
	if err := r.RegisterFactory("not-admin", chain); err == nil {
		t.Fatal("expected ErrUnauthorized for non-admin caller")
	}
}

func TestRouterLockBlocksMutatingEntrypoints(t *testing.T) {
	r, admin := newTestRouter(t)
	if err := r.UpdateLock(admin); err != nil {
		t.Fatalf("UpdateLock: %v", err)
	}
	if !r.GetState().Locked {
		t.Fatal("expected router to be locked")
	}

	chain := Chain{ChainUid: "uid1", ChainType: ChainTypeNative}
	if err := r.RegisterFactory(admin, chain); err == nil {
		t.Fatal("expected ErrContractLocked while locked")
	}

	// UpdateLock remains callable while locked (toggling the lock off);
	// UpdateRouterState then succeeds on the unlocked router.
	if err := r.UpdateLock(admin); err != nil {
		t.Fatalf("UpdateLock while locked: %v", err)
	}
	newAdmin := Address("admin2")
	if err := r.UpdateRouterState(admin, RouterStateUpdate{Admin: &newAdmin}); err != nil {
		t.Fatalf("UpdateRouterState while unlocked after relock-toggle: %v", err)
	}
}

func TestRouterAddAndRemoveLiquidity(t *testing.T) {
	r, admin := newTestRouter(t)
	chain := Chain{ChainUid: "uid1", ChainType: ChainTypeNative}
	_ = r.RegisterFactory(admin, chain)
	pair, _ := NewPair("tokA", "tokB")
	sender := CrossChainUser{ChainUid: "uid1", Address: "u1"}
	fee := Fee{LPFeeBps: 20, EuclidFeeBps: 10}
	if _, err := r.RequestPoolCreation(sender, pair, fee, "tx1"); err != nil {
		t.Fatalf("RequestPoolCreation: %v", err)
	}

	minted, err := r.AddLiquidity(sender, pair, 10000, 10000, 50, "tx2")
	if err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}
	if minted != 9000 {
		t.Fatalf("minted = %d, want 9000", minted)
	}
	if got := r.EscrowBalance("uid1", "tokA"); got != 10000 {
		t.Fatalf("escrow[tokA] = %d, want 10000", got)
	}
	if got := r.EscrowBalance("uid1", "tokB"); got != 10000 {
		t.Fatalf("escrow[tokB] = %d, want 10000", got)
	}

	out1, out2, err := r.RemoveLiquidity(sender, pair, 4500, "tx3")
	if err != nil {
		t.Fatalf("RemoveLiquidity: %v", err)
	}
	if out1 != 5000 || out2 != 5000 {
		t.Fatalf("out1,out2 = %d,%d, want 5000,5000", out1, out2)
	}
	if got := r.EscrowBalance("uid1", "tokA"); got != 5000 {
		t.Fatalf("escrow[tokA] after removal = %d, want 5000", got)
	}
}

// Scenario 4: multi-hop swap across two VLPs.
func TestRouterMultiHopSwap(t *testing.T) {
	r, admin := newTestRouter(t)
	chain := Chain{ChainUid: "uid1", ChainType: ChainTypeNative}
	_ = r.RegisterFactory(admin, chain)
	sender := CrossChainUser{ChainUid: "uid1", Address: "u1"}
	dest := CrossChainUser{ChainUid: "uid1", Address: "dest"}
	fee := Fee{LPFeeBps: 20, EuclidFeeBps: 10}

	pairAB, _ := NewPair("tokA", "tokB")
	pairBC, _ := NewPair("tokB", "tokC")
	if _, err := r.RequestPoolCreation(sender, pairAB, fee, "tx1"); err != nil {
		t.Fatalf("create pool AB: %v", err)
	}
	if _, err := r.RequestPoolCreation(sender, pairBC, fee, "tx2"); err != nil {
		t.Fatalf("create pool BC: %v", err)
	}
	if _, err := r.AddLiquidity(sender, pairAB, 10000, 10000, 50, "tx3"); err != nil {
		t.Fatalf("add liquidity AB: %v", err)
	}
	if _, err := r.AddLiquidity(sender, pairBC, 10000, 10000, 50, "tx4"); err != nil {
		t.Fatalf("add liquidity BC: %v", err)
	}

	req := SwapRequest{
		Sender:       sender,
		AssetIn:      "tokA",
		AmountIn:     1000,
		AssetOut:     "tokC",
		MinAmountOut: 800,
		Swaps:        []NextSwapPair{{TokenIn: "tokA", TokenOut: "tokB"}, {TokenIn: "tokB", TokenOut: "tokC"}},
		Destination:  dest,
		TxId:         "tx5",
	}
	out, release, err := r.Swap(req)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if out < 800 {
		t.Fatalf("out = %d, want >= 800", out)
	}
	if release == nil || release.Token != "tokC" || release.Amount != out {
		t.Fatalf("unexpected release: %+v", release)
	}
}

func TestRouterSwapRejectsUnknownHop(t *testing.T) {
	r, admin := newTestRouter(t)
	chain := Chain{ChainUid: "uid1", ChainType: ChainTypeNative}
	_ = r.RegisterFactory(admin, chain)
	sender := CrossChainUser{ChainUid: "uid1", Address: "u1"}

	req := SwapRequest{
		Sender:   sender,
		AssetIn:  "tokX",
		AmountIn: 100,
		Swaps:    []NextSwapPair{{TokenIn: "tokX", TokenOut: "tokY"}},
		TxId:     "tx1",
	}
	if _, _, err := r.Swap(req); err == nil {
		t.Fatal("expected error for a swap whose hop has no instantiated VLP")
	}
}

func TestRouterSimulateSwapMatchesMultiHopSwap(t *testing.T) {
	r, admin := newTestRouter(t)
	chain := Chain{ChainUid: "uid1", ChainType: ChainTypeNative}
	_ = r.RegisterFactory(admin, chain)
	sender := CrossChainUser{ChainUid: "uid1", Address: "u1"}
	fee := Fee{LPFeeBps: 20, EuclidFeeBps: 10}

	pairAB, _ := NewPair("tokA", "tokB")
	pairBC, _ := NewPair("tokB", "tokC")
	if _, err := r.RequestPoolCreation(sender, pairAB, fee, "tx1"); err != nil {
		t.Fatalf("create pool AB: %v", err)
	}
	if _, err := r.RequestPoolCreation(sender, pairBC, fee, "tx2"); err != nil {
		t.Fatalf("create pool BC: %v", err)
	}
	if _, err := r.AddLiquidity(sender, pairAB, 10000, 10000, 50, "tx3"); err != nil {
		t.Fatalf("add liquidity AB: %v", err)
	}
	if _, err := r.AddLiquidity(sender, pairBC, 10000, 10000, 50, "tx4"); err != nil {
		t.Fatalf("add liquidity BC: %v", err)
	}

	simReq := SimulateSwapRequest{
		AssetIn:      "tokA",
		AmountIn:     1000,
		AssetOut:     "tokC",
		MinAmountOut: 800,
		Swaps:        []NextSwapPair{{TokenIn: "tokA", TokenOut: "tokB"}, {TokenIn: "tokB", TokenOut: "tokC"}},
	}
	simAsset, simOut, err := r.SimulateSwap(simReq)
	if err != nil {
		t.Fatalf("SimulateSwap: %v", err)
	}
	if simAsset != "tokC" {
		t.Fatalf("simAsset = %s, want tokC", simAsset)
	}

	dest := CrossChainUser{ChainUid: "uid1", Address: "dest"}
	swapReq := SwapRequest{
		Sender:       sender,
		AssetIn:      "tokA",
		AmountIn:     1000,
		AssetOut:     "tokC",
		MinAmountOut: 800,
		Swaps:        simReq.Swaps,
		Destination:  dest,
		TxId:         "tx5",
	}
	out, _, err := r.Swap(swapReq)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if simOut != out {
		t.Fatalf("SimulateSwap out = %d, want %d to match the actual Swap (simulation must not mutate VLP state)", simOut, out)
	}
}

func TestRouterSimulateSwapRejectsUnknownHop(t *testing.T) {
	r, admin := newTestRouter(t)
	chain := Chain{ChainUid: "uid1", ChainType: ChainTypeNative}
	_ = r.RegisterFactory(admin, chain)

	req := SimulateSwapRequest{
		AssetIn:  "tokX",
		AmountIn: 100,
		AssetOut: "tokY",
		Swaps:    []NextSwapPair{{TokenIn: "tokX", TokenOut: "tokY"}},
	}
	if _, _, err := r.SimulateSwap(req); err == nil {
		t.Fatal("expected error for a simulated swap whose hop has no instantiated VLP")
	}
}

func TestRouterPendingRequestAtMostOnceResolution(t *testing.T) {
	r, _ := newTestRouter(t)
	pr := &PendingRequest{TxId: "tx1", Kind: PendingSwap}
	r.trackPending(pr)
	if r.PendingCount() != 1 {
		t.Fatalf("PendingCount() = %d, want 1", r.PendingCount())
	}

	got, ok := r.resolvePending("tx1")
	if !ok || got != pr {
		t.Fatalf("first resolvePending = (%v,%v), want (pr,true)", got, ok)
	}
	if _, ok := r.resolvePending("tx1"); ok {
		t.Fatal("second resolvePending for same tx_id must be a no-op")
	}
}
