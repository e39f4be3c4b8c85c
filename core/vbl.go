package core

// Virtual Balance Ledger — the hub's canonical accounting of who owns what
// where (spec §4.3). Grounded on the teacher's WAL-replay + snapshot/prune
// pattern in core/ledger.go, shrunk from "blockchain ledger" to "balance
// event log": every Mint/Burn/Transfer is appended to a WAL as JSON lines
// and replayed on startup, and a height-indexed snapshot is retained per
// key so historical balances can be queried (spec §4.3 "Snapshot
// semantics"). Authorization mirrors
// original_source/contracts/hub/virtual_balance/src/execute.rs: the router
// is the only caller of Mint/Burn; Transfer additionally allows a
// same-chain (VSL) self-transfer.

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// BalanceKey identifies one (chain_uid, address, token) balance slot.
type BalanceKey struct {
	ChainUid ChainUid
	Address  Address
	Token    Token
}

func (k BalanceKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.ChainUid, k.Address, k.Token)
}

// balanceSnapshot is one historical entry: the balance as of Height.
type balanceSnapshot struct {
	Height uint64
	Amount uint64
}

// walEvent is the durable record appended for every ledger mutation.
type walEvent struct {
	Op     string     `json:"op"` // "mint" | "burn" | "transfer"
	Key    BalanceKey `json:"key"`
	ToKey  *BalanceKey `json:"to_key,omitempty"`
	Amount uint64     `json:"amount"`
	Height uint64     `json:"height"`
}

// VirtualBalanceLedger is the sharded, snapshot-per-height balance map.
type VirtualBalanceLedger struct {
	mu sync.RWMutex

	balances  map[BalanceKey]uint64
	snapshots map[BalanceKey][]balanceSnapshot
	height    uint64

	walFile *os.File
	walPath string
	log     *logrus.Logger
}

// VBLConfig configures where the ledger's WAL is stored.
type VBLConfig struct {
	WALPath string
	Log     *logrus.Logger
}

// NewVirtualBalanceLedger opens (creating if absent) the WAL at
// cfg.WALPath and replays it to rebuild in-memory state, matching
// core/ledger.go's NewLedger shape.
func NewVirtualBalanceLedger(cfg VBLConfig) (*VirtualBalanceLedger, error) {
	log := cfg.Log
	if log == nil {
		log = logrus.New()
	}
	wal, err := os.OpenFile(cfg.WALPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open vbl wal: %w", err)
	}
	v := &VirtualBalanceLedger{
		balances:  make(map[BalanceKey]uint64),
		snapshots: make(map[BalanceKey][]balanceSnapshot),
		walFile:   wal,
		walPath:   cfg.WALPath,
		log:       log,
	}
	scanner := bufio.NewScanner(wal)
	for scanner.Scan() {
		var ev walEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("vbl wal unmarshal: %w", err)
		}
		v.replay(ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vbl wal scan: %w", err)
	}
	return v, nil
}

// Close releases the underlying WAL file handle.
func (v *VirtualBalanceLedger) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.walFile.Close()
}

func (v *VirtualBalanceLedger) replay(ev walEvent) {
	switch ev.Op {
	case "mint":
		v.balances[ev.Key] += ev.Amount
	case "burn":
		v.balances[ev.Key] -= ev.Amount
	case "transfer":
		v.balances[ev.Key] -= ev.Amount
		if ev.ToKey != nil {
			v.balances[*ev.ToKey] += ev.Amount
		}
	}
	if ev.Height > v.height {
		v.height = ev.Height
	}
	v.snapshots[ev.Key] = append(v.snapshots[ev.Key], balanceSnapshot{Height: ev.Height, Amount: v.balances[ev.Key]})
	if ev.ToKey != nil {
		v.snapshots[*ev.ToKey] = append(v.snapshots[*ev.ToKey], balanceSnapshot{Height: ev.Height, Amount: v.balances[*ev.ToKey]})
	}
}

func (v *VirtualBalanceLedger) appendWAL(ev walEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := v.walFile.Write(append(raw, '\n')); err != nil {
		return err
	}
	return v.walFile.Sync()
}

// NextHeight advances and returns the ledger's logical height counter. The
// router calls it at each ledger-mutating step of a message (Swap, for
// example, advances it for the source mint, the source burn, and each
// destination mint and burn), so the mutations of one message do not
// necessarily share a height.
func (v *VirtualBalanceLedger) NextHeight() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.height++
	return v.height
}

// Mint credits amount to key at height. Router-only by convention; callers
// outside core/router.go must not call this directly.
func (v *VirtualBalanceLedger) Mint(key BalanceKey, amount uint64, height uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: mint", ErrZeroAssetAmount)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.appendWAL(walEvent{Op: "mint", Key: key, Amount: amount, Height: height}); err != nil {
		return err
	}
	v.balances[key] += amount
	v.recordSnapshot(key, height)
	return nil
}

// Burn debits amount from key at height. Fails with ErrInsufficientFunds
// if the balance would go negative.
func (v *VirtualBalanceLedger) Burn(key BalanceKey, amount uint64, height uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: burn", ErrZeroAssetAmount)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.balances[key] < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, v.balances[key], amount)
	}
	if err := v.appendWAL(walEvent{Op: "burn", Key: key, Amount: amount, Height: height}); err != nil {
		return err
	}
	v.balances[key] -= amount
	v.recordSnapshot(key, height)
	return nil
}

// Transfer moves amount from `from` to `to`. Authorized if authorizedAsRouter
// is true, or if from.ChainUid == VSLChainUid and caller == from.Address
// (same-chain self-transfer), matching the virtual_balance contract's
// execute_transfer guard.
func (v *VirtualBalanceLedger) Transfer(from, to BalanceKey, amount uint64, caller Address, authorizedAsRouter bool, height uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: transfer", ErrZeroAssetAmount)
	}
	if !authorizedAsRouter {
		if !(from.ChainUid == VSLChainUid && from.Address == caller) {
			return ErrUnauthorized
		}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.balances[from] < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, v.balances[from], amount)
	}
	toCopy := to
	if err := v.appendWAL(walEvent{Op: "transfer", Key: from, ToKey: &toCopy, Amount: amount, Height: height}); err != nil {
		return err
	}
	v.balances[from] -= amount
	v.balances[to] += amount
	v.recordSnapshot(from, height)
	v.recordSnapshot(to, height)
	return nil
}

// recordSnapshot must be called with v.mu held.
func (v *VirtualBalanceLedger) recordSnapshot(key BalanceKey, height uint64) {
	v.snapshots[key] = append(v.snapshots[key], balanceSnapshot{Height: height, Amount: v.balances[key]})
}

// GetBalance returns the current balance for key.
func (v *VirtualBalanceLedger) GetBalance(key BalanceKey) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.balances[key]
}

// GetBalanceAtHeight returns the balance for key as of the latest snapshot
// not exceeding height, or 0 if the key never existed by that height.
func (v *VirtualBalanceLedger) GetBalanceAtHeight(key BalanceKey, height uint64) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	history := v.snapshots[key]
	var amount uint64
	for _, s := range history {
		if s.Height > height {
			break
		}
		amount = s.Amount
	}
	return amount
}

// UserBalance is one entry returned by GetUserBalances.
type UserBalance struct {
	Token  Token
	Amount uint64
}

// GetUserBalances scans all balances for (chainUid, address), implemented
// as a prefix scan over the in-memory map (spec §4.3: "implemented as a
// prefix scan over the snapshot map").
func (v *VirtualBalanceLedger) GetUserBalances(chainUid ChainUid, address Address) []UserBalance {
	v.mu.RLock()
	defer v.mu.RUnlock()
	prefix := string(chainUid) + "/" + string(address) + "/"
	out := make([]UserBalance, 0)
	for k, amt := range v.balances {
		if amt == 0 {
			continue
		}
		if strings.HasPrefix(k.String(), prefix) {
			out = append(out, UserBalance{Token: k.Token, Amount: amt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}
