package core

// Core identifier and wire types shared by the router, the VLP state
// machine, and the virtual balance ledger.

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	chainUidPattern = regexp.MustCompile(`^[a-z0-9.]+$`)
	tokenPattern    = regexp.MustCompile(`^[a-zA-Z0-9.]+$`)
)

// VSLChainUid is the reserved chain-uid meaning "the hub itself", used by
// the Virtual Balance Ledger to permit same-chain self-transfers.
const VSLChainUid ChainUid = "vsl"

// ChainUid names a chain within the ecosystem. Distinct from the chain's
// own chain-id; unique and immutable once registered.
type ChainUid string

// Validate reports whether uid is a well-formed, non-empty chain-uid.
func (u ChainUid) Validate() error {
	if u == "" || !chainUidPattern.MatchString(string(u)) {
		return fmt.Errorf("%w: chain_uid %q", ErrInvalidChainId, u)
	}
	return nil
}

// Token names a logical asset. The same token may live on many chains
// under different native denominations or contract addresses.
type Token string

// Validate reports whether t is a well-formed, non-empty token name.
func (t Token) Validate() error {
	if t == "" || !tokenPattern.MatchString(string(t)) {
		return fmt.Errorf("%w: token %q", ErrInvalidTokenID, t)
	}
	return nil
}

// Pair is an ordered pair of tokens with Token1 < Token2 lexicographically.
// NewPair is the only constructor; canonical ordering is a hard invariant.
type Pair struct {
	Token1 Token
	Token2 Token
}

// NewPair builds a Pair, normalizing (b,a) input into canonical (a,b) order.
// Fails if a == b or either token is malformed.
func NewPair(a, b Token) (Pair, error) {
	if err := a.Validate(); err != nil {
		return Pair{}, err
	}
	if err := b.Validate(); err != nil {
		return Pair{}, err
	}
	if a == b {
		return Pair{}, fmt.Errorf("%w: %s", ErrDuplicateTokens, a)
	}
	if a > b {
		a, b = b, a
	}
	return Pair{Token1: a, Token2: b}, nil
}

// Key returns a stable string key suitable for map lookups and log lines.
func (p Pair) Key() string { return string(p.Token1) + "/" + string(p.Token2) }

// Address is a chain-local account identifier. Chains in this ecosystem
// encode addresses heterogeneously (bech32, hex, etc.), so unlike the
// teacher's fixed-width [20]byte EVM address, Address here is an opaque
// string — see DESIGN.md for the rationale.
type Address string

// CrossChainUser fully qualifies a user by the chain they are acting from.
type CrossChainUser struct {
	ChainUid ChainUid
	Address  Address
}

// String renders the user as "chain_uid:address", used in TxId derivation
// and log fields.
func (u CrossChainUser) String() string {
	return fmt.Sprintf("%s:%s", u.ChainUid, u.Address)
}

// IsVSL reports whether this user is addressed on the hub's own chain-uid,
// the only case in which a user may self-authorize a virtual balance
// transfer without going through the router.
func (u CrossChainUser) IsVSL() bool { return u.ChainUid == VSLChainUid }

// TxId is the deterministic per-action correlation string:
// "{sender}:{chain_id}:{height}:{index}:{nonce}".
type TxId string

// NewTxId derives a TxId from its constituent parts.
func NewTxId(sender CrossChainUser, chainID string, height, index, nonce uint64) TxId {
	return TxId(fmt.Sprintf("%s:%s:%d:%d:%d", sender, chainID, height, index, nonce))
}

// NewTxIdFallback mints a TxId for callers that cannot supply a
// deterministic one (e.g. CLI-driven one-off requests with no chain
// height/index/nonce to hand). Not used on the router's primary dispatch
// path, where every packet already carries a caller-supplied tx_id.
func NewTxIdFallback(sender CrossChainUser) TxId {
	return TxId(fmt.Sprintf("%s:%s", sender, uuid.NewString()))
}

// NextSwapPair names one hop of a multi-hop swap route.
type NextSwapPair struct {
	TokenIn  Token
	TokenOut Token
}

// CrossChainUserWithLimit pairs a destination user with an optional release
// ceiling, used when Withdraw fans out across several destination chains.
type CrossChainUserWithLimit struct {
	User  CrossChainUser
	Limit *uint64
}

// ChainType distinguishes synchronous local delivery from asynchronous
// packet-based delivery for a registered chain.
type ChainType int

const (
	// ChainTypeNative delivers messages as local calls (NativeReceiveCallback).
	ChainTypeNative ChainType = iota
	// ChainTypeIBC delivers messages as async packets over a channel pair.
	ChainTypeIBC
)

func (t ChainType) String() string {
	if t == ChainTypeIBC {
		return "ibc"
	}
	return "native"
}

// Bounded parameters, per spec §6.6.
const (
	MaxFeeBps        = 1000 // 10%
	MaxPartnerFeeBps = 30   // 0.3%
	MinimumLiquidity = 1000

	DefaultTimeoutSeconds = 60
	MinTimeoutSeconds     = 30
	MaxTimeoutSeconds     = 240

	// Reply-id ranges, disjoint so a reply handler can tell origins apart.
	HubReplyIDLow    = 1001
	HubReplyIDHigh   = 2000
	ChainReplyIDLow  = 2001
	ChainReplyIDHigh = 3000
)

// ClampTimeout normalizes a requested timeout to the bounded range,
// substituting the default when zero is supplied.
func ClampTimeout(seconds int) (int, error) {
	if seconds == 0 {
		return DefaultTimeoutSeconds, nil
	}
	if seconds < MinTimeoutSeconds || seconds > MaxTimeoutSeconds {
		return 0, fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidTimeout, seconds, MinTimeoutSeconds, MaxTimeoutSeconds)
	}
	return seconds, nil
}

// NormalizeChainUid lower-cases and trims a chain-uid before validation,
// matching how CLI/HTTP input arrives compared to internally-constructed
// values which are already normalized.
func NormalizeChainUid(raw string) ChainUid {
	return ChainUid(strings.ToLower(strings.TrimSpace(raw)))
}
