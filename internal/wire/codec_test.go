package wire

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
)

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return decoded
}

func TestRoundTripValues(t *testing.T) {
	values := []Value{
		NewBool(true),
		NewBool(false),
		NewI32(-7),
		NewI64(1 << 40),
		NewF32(3.25),
		NewF64(-1.5e10),
		NewString("Hello WIND!"),
		NewBytes([]byte{0, 1, 2, 255}),
		NewArray([]Value{NewI32(1), NewString("two"), NewBool(true)}),
		NewMap(map[string]Value{"a": NewF64(10.0), "b": NewF64(5.0)}),
	}
	for _, v := range values {
		msg := NewMessage(Publish{Service: "TEST/SVC", Sequence: 1, Value: v})
		decoded := roundTrip(t, msg)
		pub, ok := decoded.Payload.(Publish)
		if !ok {
			t.Fatalf("wrong payload type %T", decoded.Payload)
		}
		if !pub.Value.Equal(v) {
			t.Errorf("value mismatch: got %+v want %+v", pub.Value, v)
		}
	}
}

func TestRoundTripEnvelope(t *testing.T) {
	msg := NewMessage(Ping{})
	decoded := roundTrip(t, msg)
	if decoded.ID != msg.ID {
		t.Errorf("id mismatch: got %v want %v", decoded.ID, msg.ID)
	}
	if decoded.TimestampUS != msg.TimestampUS {
		t.Errorf("timestamp mismatch: got %d want %d", decoded.TimestampUS, msg.TimestampUS)
	}
	if _, ok := decoded.Payload.(Ping); !ok {
		t.Fatalf("expected Ping, got %T", decoded.Payload)
	}
}

func TestRoundTripAllPayloadVariants(t *testing.T) {
	subID := uuid.New()
	callID := uuid.New()
	svc := ServiceInfo{
		Name: "SENSOR/ROOM_A/TEMP", Address: "127.0.0.1:9001",
		ServiceType: ServiceTypePublisher, SchemaID: "temp.v1",
		TTLMillis: 60000, Tags: []string{"room:a", "floor:2"},
	}
	payloads := []Payload{
		RegisterService{Service: svc},
		ServiceRegistered{Service: svc.Name, Success: true},
		ServiceRegistered{Service: svc.Name, Success: false, Error: "boom"},
		DiscoverServices{Pattern: "SENSOR/*/TEMP"},
		ServicesDiscovered{Services: []ServiceInfo{svc, svc}},
		Subscribe{Service: svc.Name, Mode: OnChange(), Qos: DefaultQos(), SchemaID: "temp.v1"},
		Subscribe{Service: svc.Name, Mode: Periodic(100), Qos: QosParams{Reliability: ReliabilityReliable, Durability: true, MaxQueueSize: 10}},
		SubscribeAck{SubscriptionID: subID, Success: true, HasValue: true, CurrentValue: NewI32(42)},
		SubscribeAck{SubscriptionID: subID, Success: false, Error: "nope"},
		Unsubscribe{SubscriptionID: subID},
		Publish{Service: svc.Name, Sequence: 9, Value: NewString("Hello WIND!")},
		RpcCall{Service: "CALCULATOR", Method: "add", Params: NewMap(map[string]Value{"a": NewF64(10), "b": NewF64(5)})},
		RpcResponse{CallID: callID, Ok: true, Result: NewF64(15)},
		RpcResponse{CallID: callID, Ok: false, ErrorMsg: "Method not found: sub"},
		Heartbeat{},
		Ping{},
		Pong{},
		Error{Message: "malformed frame", Context: "registry"},
		WatchServices{Pattern: "SENSOR/*"},
		ServiceEvent{Service: svc},
	}
	for _, p := range payloads {
		msg := NewMessage(p)
		decoded := roundTrip(t, msg)
		data1, _ := Encode(msg)
		data2, _ := Encode(decoded)
		if !bytes.Equal(data1, data2) {
			t.Errorf("re-encoding mismatch for %T", p)
		}
	}
}

func TestFrameRejectsOversized(t *testing.T) {
	buf := &bytes.Buffer{}
	// Write a length header declaring more than MaxFrameBytes without
	// supplying any payload bytes; ReadFrame must reject before reading.
	lenHeader := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf.Write(lenHeader)
	if _, err := ReadFrame(buf); err == nil {
		t.Fatal("expected error for oversized frame")
	}
}

func TestFrameRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	msg := NewMessage(Publish{Service: "X", Sequence: 1, Value: NewI32(7)})
	if err := WriteMessage(buf, msg); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	decoded, err := ReadMessage(buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	pub := decoded.Payload.(Publish)
	if pub.Sequence != 1 || !pub.Value.Equal(NewI32(7)) {
		t.Errorf("unexpected decoded payload: %+v", pub)
	}
}

func TestValueEqual(t *testing.T) {
	a := NewMap(map[string]Value{"x": NewI32(1), "y": NewArray([]Value{NewString("a")})})
	b := NewMap(map[string]Value{"y": NewArray([]Value{NewString("a")}), "x": NewI32(1)})
	if !a.Equal(b) {
		t.Error("expected structurally equal maps (order-independent) to be Equal")
	}
	c := NewMap(map[string]Value{"x": NewI32(2), "y": NewArray([]Value{NewString("a")})})
	if a.Equal(c) {
		t.Error("expected differing values to be unequal")
	}
}
