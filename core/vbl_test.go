package core

import (
	"path/filepath"
	"testing"
)

func newTestLedger(t *testing.T) *VirtualBalanceLedger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vbl.wal")
	v, err := NewVirtualBalanceLedger(VBLConfig{WALPath: path})
	if err != nil {
		t.Fatalf("NewVirtualBalanceLedger: %v", err)
	}
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestVBLMintBurn(t *testing.T) {
	v := newTestLedger(t)
	key := BalanceKey{ChainUid: "osmosis", Address: "alice", Token: "atom"}

	h := v.NextHeight()
	if err := v.Mint(key, 100, h); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := v.GetBalance(key); got != 100 {
		t.Fatalf("balance after mint = %d, want 100", got)
	}

	h2 := v.NextHeight()
	if err := v.Burn(key, 40, h2); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := v.GetBalance(key); got != 60 {
		t.Fatalf("balance after burn = %d, want 60", got)
	}
}

func TestVBLBurnInsufficientFunds(t *testing.T) {
	v := newTestLedger(t)
	key := BalanceKey{ChainUid: "osmosis", Address: "alice", Token: "atom"}
	if err := v.Burn(key, 1, v.NextHeight()); err == nil {
		t.Fatal("expected error burning from empty balance")
	}
}

func TestVBLTransferRequiresAuthorization(t *testing.T) {
	v := newTestLedger(t)
	from := BalanceKey{ChainUid: "osmosis", Address: "alice", Token: "atom"}
	to := BalanceKey{ChainUid: "osmosis", Address: "bob", Token: "atom"}
	if err := v.Mint(from, 50, v.NextHeight()); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := v.Transfer(from, to, 10, "bob", false, v.NextHeight()); err == nil {
		t.Fatal("expected unauthorized transfer to fail")
	}

	if err := v.Transfer(from, to, 10, "router", true, v.NextHeight()); err != nil {
		t.Fatalf("router-authorized transfer: %v", err)
	}
	if got := v.GetBalance(to); got != 10 {
		t.Fatalf("to balance = %d, want 10", got)
	}
}

func TestVBLSelfTransferOnVSL(t *testing.T) {
	v := newTestLedger(t)
	from := BalanceKey{ChainUid: VSLChainUid, Address: "alice", Token: "atom"}
	to := BalanceKey{ChainUid: "osmosis", Address: "bob", Token: "atom"}
	if err := v.Mint(from, 50, v.NextHeight()); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := v.Transfer(from, to, 20, "alice", false, v.NextHeight()); err != nil {
		t.Fatalf("self-transfer on vsl: %v", err)
	}
	if got := v.GetBalance(from); got != 30 {
		t.Fatalf("from balance = %d, want 30", got)
	}
}

func TestVBLGetBalanceAtHeight(t *testing.T) {
	v := newTestLedger(t)
	key := BalanceKey{ChainUid: "osmosis", Address: "alice", Token: "atom"}
	h1 := v.NextHeight()
	_ = v.Mint(key, 100, h1)
	h2 := v.NextHeight()
	_ = v.Burn(key, 30, h2)

	if got := v.GetBalanceAtHeight(key, h1); got != 100 {
		t.Fatalf("balance at h1 = %d, want 100", got)
	}
	if got := v.GetBalanceAtHeight(key, h2); got != 70 {
		t.Fatalf("balance at h2 = %d, want 70", got)
	}
	if got := v.GetBalanceAtHeight(key, h1-1); got != 0 {
		t.Fatalf("balance before first mutation = %d, want 0", got)
	}
}

func TestVBLGetUserBalances(t *testing.T) {
	v := newTestLedger(t)
	alice := CrossChainUser{ChainUid: "osmosis", Address: "alice"}
	_ = v.Mint(BalanceKey{ChainUid: alice.ChainUid, Address: alice.Address, Token: "atom"}, 10, v.NextHeight())
	_ = v.Mint(BalanceKey{ChainUid: alice.ChainUid, Address: alice.Address, Token: "osmo"}, 5, v.NextHeight())
	_ = v.Mint(BalanceKey{ChainUid: "juno", Address: alice.Address, Token: "atom"}, 99, v.NextHeight())

	balances := v.GetUserBalances(alice.ChainUid, alice.Address)
	if len(balances) != 2 {
		t.Fatalf("got %d balances, want 2", len(balances))
	}
	if balances[0].Token != "atom" || balances[0].Amount != 10 {
		t.Fatalf("unexpected first balance: %+v", balances[0])
	}
	if balances[1].Token != "osmo" || balances[1].Amount != 5 {
		t.Fatalf("unexpected second balance: %+v", balances[1])
	}
}

func TestVBLReplaysWAL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vbl.wal")
	key := BalanceKey{ChainUid: "osmosis", Address: "alice", Token: "atom"}

	v1, err := NewVirtualBalanceLedger(VBLConfig{WALPath: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = v1.Mint(key, 100, v1.NextHeight())
	_ = v1.Burn(key, 25, v1.NextHeight())
	if err := v1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	v2, err := NewVirtualBalanceLedger(VBLConfig{WALPath: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer v2.Close()
	if got := v2.GetBalance(key); got != 75 {
		t.Fatalf("replayed balance = %d, want 75", got)
	}
}
