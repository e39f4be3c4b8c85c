package core

import "testing"

func TestChainRegistryRegisterAndGet(t *testing.T) {
	r := NewChainRegistry()
	c := Chain{ChainUid: "uid1", FactoryChainID: "osmosis-1", FactoryAddress: "f1", ChainType: ChainTypeNative}
	if err := r.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := r.Get("uid1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != c {
		t.Fatalf("Get returned %+v, want %+v", got, c)
	}
}

func TestChainRegistryRejectsDuplicate(t *testing.T) {
	r := NewChainRegistry()
	c := Chain{ChainUid: "uid1", ChainType: ChainTypeNative}
	if err := r.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(c); err == nil {
		t.Fatal("expected ErrChainAlreadyExists on duplicate registration")
	}
}

func TestChainRegistryUpdateChannelRequiresIBC(t *testing.T) {
	r := NewChainRegistry()
	native := Chain{ChainUid: "uid1", ChainType: ChainTypeNative}
	_ = r.Register(native)
	if err := r.UpdateChannel("uid1", "channel-0", "channel-1"); err == nil {
		t.Fatal("expected ErrNotIBCChain for a native chain")
	}

	ibc := Chain{ChainUid: "uid2", ChainType: ChainTypeIBC}
	_ = r.Register(ibc)
	if err := r.UpdateChannel("uid2", "channel-0", "channel-1"); err != nil {
		t.Fatalf("UpdateChannel on ibc chain: %v", err)
	}
	uid, ok := r.ChainForChannel("channel-1")
	if !ok || uid != "uid2" {
		t.Fatalf("ChainForChannel(channel-1) = (%s,%v), want (uid2,true)", uid, ok)
	}
}

func TestChainRegistryAllAndCount(t *testing.T) {
	r := NewChainRegistry()
	_ = r.Register(Chain{ChainUid: "uid1", ChainType: ChainTypeNative})
	_ = r.Register(Chain{ChainUid: "uid2", ChainType: ChainTypeIBC})
	if r.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", r.Count())
	}
	if len(r.All()) != 2 {
		t.Fatalf("len(All()) = %d, want 2", len(r.All()))
	}
}
