package wire

import (
	"time"

	"github.com/google/uuid"
)

// PayloadKind tags the concrete variant carried by a Message's Payload.
type PayloadKind byte

const (
	PayloadRegisterService PayloadKind = iota + 1
	PayloadServiceRegistered
	PayloadDiscoverServices
	PayloadServicesDiscovered
	PayloadSubscribe
	PayloadSubscribeAck
	PayloadUnsubscribe
	PayloadPublish
	PayloadRpcCall
	PayloadRpcResponse
	PayloadHeartbeat
	PayloadPing
	PayloadPong
	PayloadError
	PayloadWatchServices
	PayloadServiceEvent
)

// ServiceType classifies what a registered service accepts connections for.
type ServiceType byte

const (
	ServiceTypePublisher ServiceType = iota + 1
	ServiceTypeRpcServer
	ServiceTypeBoth
)

// Reliability selects the backpressure policy for a subscription's queue.
type Reliability byte

const (
	ReliabilityBestEffort Reliability = iota + 1
	ReliabilityReliable
)

// ModeKind tags a SubscriptionMode's variant.
type ModeKind byte

const (
	ModeOnce ModeKind = iota + 1
	ModePeriodic
	ModeOnChange
)

// SubscriptionMode is the per-subscriber delivery policy (spec.md §3).
type SubscriptionMode struct {
	Kind       ModeKind
	IntervalMS uint64 // meaningful only when Kind == ModePeriodic
}

func Once() SubscriptionMode                { return SubscriptionMode{Kind: ModeOnce} }
func OnChange() SubscriptionMode            { return SubscriptionMode{Kind: ModeOnChange} }
func Periodic(intervalMS uint64) SubscriptionMode {
	return SubscriptionMode{Kind: ModePeriodic, IntervalMS: intervalMS}
}

// QosParams controls delivery reliability and queue sizing for one
// subscription (spec.md §3).
type QosParams struct {
	Reliability  Reliability
	Durability   bool
	MaxQueueSize uint32
}

// DefaultQos mirrors what an unconfigured client would reasonably request:
// best-effort delivery, no replay-on-subscribe, a modest queue.
func DefaultQos() QosParams {
	return QosParams{Reliability: ReliabilityBestEffort, Durability: false, MaxQueueSize: 256}
}

// ServiceInfo describes one registered, discoverable service (spec.md §3).
type ServiceInfo struct {
	Name        string
	Address     string
	ServiceType ServiceType
	SchemaID    string // empty means "none"
	TTLMillis   uint64
	Tags        []string
}

// Payload is implemented by every concrete message variant.
type Payload interface {
	payloadKind() PayloadKind
}

type RegisterService struct {
	Service ServiceInfo
}

type ServiceRegistered struct {
	Service string
	Success bool
	Error   string // empty means "none"
}

type DiscoverServices struct {
	Pattern string
}

type ServicesDiscovered struct {
	Services []ServiceInfo
}

type Subscribe struct {
	Service  string
	Mode     SubscriptionMode
	Qos      QosParams
	SchemaID string
}

type SubscribeAck struct {
	SubscriptionID uuid.UUID
	Success        bool
	Error          string
	HasValue       bool
	CurrentValue   Value
}

type Unsubscribe struct {
	SubscriptionID uuid.UUID
}

type Publish struct {
	Service  string
	Sequence uint64
	Value    Value
	SchemaID string
}

type RpcCall struct {
	Service  string
	Method   string
	Params   Value
	SchemaID string
}

type RpcResponse struct {
	CallID   uuid.UUID
	Ok       bool
	Result   Value  // meaningful iff Ok
	ErrorMsg string // meaningful iff !Ok
	SchemaID string
}

type Heartbeat struct{}
type Ping struct{}
type Pong struct{}

type Error struct {
	Message string
	Context string
}

// WatchServices opens a long-lived registry stream over the connection it
// is sent on: a snapshot event per currently-matching live service followed
// by one ServiceEvent per future matching Register (spec.md §4.2 Watch).
// There is no corresponding unwatch payload — closing the connection (or
// its read side) is how a watcher unsubscribes, per spec.md §4.2.
type WatchServices struct {
	Pattern string
}

// ServiceEvent is one snapshot or live-update notification pushed down a
// WatchServices stream.
type ServiceEvent struct {
	Service ServiceInfo
}

func (RegisterService) payloadKind() PayloadKind    { return PayloadRegisterService }
func (ServiceRegistered) payloadKind() PayloadKind  { return PayloadServiceRegistered }
func (DiscoverServices) payloadKind() PayloadKind   { return PayloadDiscoverServices }
func (ServicesDiscovered) payloadKind() PayloadKind { return PayloadServicesDiscovered }
func (Subscribe) payloadKind() PayloadKind          { return PayloadSubscribe }
func (SubscribeAck) payloadKind() PayloadKind       { return PayloadSubscribeAck }
func (Unsubscribe) payloadKind() PayloadKind        { return PayloadUnsubscribe }
func (Publish) payloadKind() PayloadKind            { return PayloadPublish }
func (RpcCall) payloadKind() PayloadKind            { return PayloadRpcCall }
func (RpcResponse) payloadKind() PayloadKind        { return PayloadRpcResponse }
func (Heartbeat) payloadKind() PayloadKind          { return PayloadHeartbeat }
func (Ping) payloadKind() PayloadKind               { return PayloadPing }
func (Pong) payloadKind() PayloadKind               { return PayloadPong }
func (Error) payloadKind() PayloadKind              { return PayloadError }
func (WatchServices) payloadKind() PayloadKind      { return PayloadWatchServices }
func (ServiceEvent) payloadKind() PayloadKind       { return PayloadServiceEvent }

// Message is the envelope carried by every frame on the wire (spec.md §3/§6).
type Message struct {
	ID          uuid.UUID
	TimestampUS uint64
	Payload     Payload
}

// NewMessage stamps a fresh envelope around payload with the current time.
func NewMessage(payload Payload) Message {
	return Message{
		ID:          uuid.New(),
		TimestampUS: uint64(time.Now().UnixMicro()),
		Payload:     payload,
	}
}
