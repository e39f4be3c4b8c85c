package core

import "encoding/json"

// marshalEvent is a small convenience wrapper used by callers that want to
// broadcast a JSON-encoded payload under a given event name without
// hand-rolling an envelope type per call site.
func marshalEvent(name string, payload interface{}) ([]byte, error) {
	return json.Marshal(struct {
		Event string      `json:"event"`
		Data  interface{} `json:"data"`
	}{Event: name, Data: payload})
}

// BroadcasterFunc is the signature for the global event broadcaster. It
// lets the hub notify external subscribers (relayer processes, indexers)
// of state changes without coupling the router/VLP/ledger to any
// particular pub-sub transport.
type BroadcasterFunc func(topic string, data []byte) error

var broadcastHook BroadcasterFunc

// SetBroadcaster installs the package-level broadcast hook. Passing nil
// disables broadcasting (the default at package init).
func SetBroadcaster(fn BroadcasterFunc) { broadcastHook = fn }

// Broadcast sends data on topic using the configured broadcaster. It is a
// no-op returning nil when no broadcaster has been installed.
func Broadcast(topic string, data []byte) error {
	if broadcastHook == nil {
		return nil
	}
	return broadcastHook(topic, data)
}

// Topics used by hub components when broadcasting.
const (
	TopicChainRegistry  = "hub:chain:registry"
	TopicVlpRegistry    = "hub:vlp:registry"
	TopicAck            = "hub:ack"
	TopicEscrowRelease  = "hub:escrow:release"
	TopicVirtualBalance = "hub:vbalance"
)
