package core

import "testing"

func newTestVLP(t *testing.T) *VLP {
	t.Helper()
	pair, err := NewPair("tokA", "tokB")
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	fee := Fee{LPFeeBps: 20, EuclidFeeBps: 10} // 0.3% total, matching scenario 3
	v, err := NewVLP(pair, fee, "admin", nil)
	if err != nil {
		t.Fatalf("NewVLP: %v", err)
	}
	return v
}

// Scenario 2: first add-liquidity on an empty pool.
func TestVLPAddLiquidityInitialMint(t *testing.T) {
	v := newTestVLP(t)
	u1 := CrossChainUser{ChainUid: "uid1", Address: "u1"}

	minted, err := v.AddLiquidity(u1, 10000, 10000, 50, 1)
	if err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}
	if minted != 9000 {
		t.Fatalf("minted = %d, want 9000", minted)
	}

	snap := v.Snapshot()
	if snap.TotalReserve1 != 10000 || snap.TotalReserve2 != 10000 {
		t.Fatalf("reserves = (%d,%d), want (10000,10000)", snap.TotalReserve1, snap.TotalReserve2)
	}
	if snap.TotalLPTokens != 9000 {
		t.Fatalf("total_lp_tokens = %d, want 9000", snap.TotalLPTokens)
	}
	if snap.PerChainLPTokens["uid1"] != 9000 {
		t.Fatalf("per_chain_lp_tokens[uid1] = %d, want 9000", snap.PerChainLPTokens["uid1"])
	}
}

func TestVLPAddLiquidityTooSmallForMinimumLiquidity(t *testing.T) {
	v := newTestVLP(t)
	u1 := CrossChainUser{ChainUid: "uid1", Address: "u1"}
	if _, err := v.AddLiquidity(u1, 10, 10, 50, 1); err == nil {
		t.Fatal("expected insufficient-deposit error for a deposit below the minimum-liquidity lock")
	}
}

// Scenario 3: single-hop swap with the spec's exact worked numbers.
func TestVLPSwapExactNumbers(t *testing.T) {
	v := newTestVLP(t)
	u1 := CrossChainUser{ChainUid: "uid1", Address: "u1"}
	if _, err := v.AddLiquidity(u1, 10000, 10000, 50, 1); err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}

	assetOut, out, err := v.Swap(u1, "tokA", 1000, 900, 0, 2)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if assetOut != "tokB" {
		t.Fatalf("asset_out = %s, want tokB", assetOut)
	}
	if out != 906 {
		t.Fatalf("out = %d, want 906", out)
	}

	snap := v.Snapshot()
	if snap.TotalReserve1 != 10997 {
		t.Fatalf("new_R_A = %d, want 10997", snap.TotalReserve1)
	}
	if snap.TotalReserve2 != 9094 {
		t.Fatalf("new_R_B = %d, want 9094", snap.TotalReserve2)
	}

	var sumR1, sumR2 uint64
	for _, cr := range snap.PerChainReserves {
		sumR1 += cr[0]
		sumR2 += cr[1]
	}
	if sumR1 != snap.TotalReserve1 {
		t.Fatalf("sum_over_chains(per_chain_reserves.tokA) = %d, want %d (matches total_reserve_1)", sumR1, snap.TotalReserve1)
	}
	if sumR2 != snap.TotalReserve2 {
		t.Fatalf("sum_over_chains(per_chain_reserves.tokB) = %d, want %d (matches total_reserve_2)", sumR2, snap.TotalReserve2)
	}
}

func TestVLPSwapSlippageBoundary(t *testing.T) {
	v := newTestVLP(t)
	u1 := CrossChainUser{ChainUid: "uid1", Address: "u1"}
	_, _ = v.AddLiquidity(u1, 10000, 10000, 50, 1)

	if _, _, err := v.Swap(u1, "tokA", 1000, 906, 0, 2); err != nil {
		t.Fatalf("swap at exact min_out should succeed, got: %v", err)
	}

	v2 := newTestVLP(t)
	_, _ = v2.AddLiquidity(u1, 10000, 10000, 50, 1)
	if _, _, err := v2.Swap(u1, "tokA", 1000, 907, 0, 2); err == nil {
		t.Fatal("swap one unit beyond min_out should fail")
	}
}

// Scenario 5: remove liquidity.
func TestVLPRemoveLiquidity(t *testing.T) {
	v := newTestVLP(t)
	u1 := CrossChainUser{ChainUid: "uid1", Address: "u1"}
	if _, err := v.AddLiquidity(u1, 10000, 10000, 50, 1); err != nil {
		t.Fatalf("AddLiquidity: %v", err)
	}

	out1, out2, err := v.RemoveLiquidity(u1, 4500, 2)
	if err != nil {
		t.Fatalf("RemoveLiquidity: %v", err)
	}
	if out1 != 5000 || out2 != 5000 {
		t.Fatalf("out1,out2 = %d,%d, want 5000,5000", out1, out2)
	}

	snap := v.Snapshot()
	if snap.TotalLPTokens != 4500 {
		t.Fatalf("total_lp_tokens = %d, want 4500", snap.TotalLPTokens)
	}
	if snap.PerChainLPTokens["uid1"] != 4500 {
		t.Fatalf("per_chain_lp_tokens[uid1] = %d, want 4500", snap.PerChainLPTokens["uid1"])
	}
}

func TestVLPRemoveLiquidityInsufficientLP(t *testing.T) {
	v := newTestVLP(t)
	u1 := CrossChainUser{ChainUid: "uid1", Address: "u1"}
	_, _ = v.AddLiquidity(u1, 10000, 10000, 50, 1)
	if _, _, err := v.RemoveLiquidity(u1, 999999, 2); err == nil {
		t.Fatal("expected error removing more LP than chain holds")
	}
}

func TestVLPSwapUnknownAsset(t *testing.T) {
	v := newTestVLP(t)
	u1 := CrossChainUser{ChainUid: "uid1", Address: "u1"}
	_, _ = v.AddLiquidity(u1, 10000, 10000, 50, 1)
	if _, _, err := v.Swap(u1, "tokZ", 100, 0, 0, 2); err == nil {
		t.Fatal("expected error swapping an asset not in the pair")
	}
}

func TestVLPSimulateSwapMatchesSwap(t *testing.T) {
	v := newTestVLP(t)
	u1 := CrossChainUser{ChainUid: "uid1", Address: "u1"}
	_, _ = v.AddLiquidity(u1, 10000, 10000, 50, 1)

	simAsset, simOut, err := v.SimulateSwap("tokA", 1000, 0)
	if err != nil {
		t.Fatalf("SimulateSwap: %v", err)
	}
	realAsset, realOut, err := v.Swap(u1, "tokA", 1000, 0, 0, 2)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if simAsset != realAsset || simOut != realOut {
		t.Fatalf("simulate (%s,%d) != actual (%s,%d)", simAsset, simOut, realAsset, realOut)
	}
}

func TestVLPRegisterPoolIdempotent(t *testing.T) {
	v := newTestVLP(t)
	u1 := CrossChainUser{ChainUid: "uid1", Address: "u1"}
	if err := v.RegisterPool(u1); err != nil {
		t.Fatalf("first RegisterPool: %v", err)
	}
	if err := v.RegisterPool(u1); err != nil {
		t.Fatalf("re-registering an existing participant must be a no-op, got: %v", err)
	}
}
