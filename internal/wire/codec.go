package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// Encode serializes a Message into the deterministic binary form carried
// inside a frame: fixed-width integers, length-prefixed strings/bytes, and
// a one-byte discriminant ahead of every tagged union. Field order is
// stable for a given payload type, so Encode is suitable for hashing or
// diffing as well as wire transport.
func Encode(msg Message) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Write(msg.ID[:])
	writeU64(buf, msg.TimestampUS)
	buf.WriteByte(byte(msg.Payload.payloadKind()))
	if err := encodePayload(buf, msg.Payload); err != nil {
		return nil, fmt.Errorf("wire: encode payload: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a Message from the bytes produced by Encode.
func Decode(data []byte) (Message, error) {
	r := bytes.NewReader(data)
	var idBytes [16]byte
	if _, err := r.Read(idBytes[:]); err != nil {
		return Message{}, fmt.Errorf("wire: decode id: %w", err)
	}
	id, err := uuid.FromBytes(idBytes[:])
	if err != nil {
		return Message{}, fmt.Errorf("wire: decode id: %w", err)
	}
	ts, err := readU64(r)
	if err != nil {
		return Message{}, fmt.Errorf("wire: decode timestamp: %w", err)
	}
	kindByte, err := r.ReadByte()
	if err != nil {
		return Message{}, fmt.Errorf("wire: decode payload kind: %w", err)
	}
	payload, err := decodePayload(r, PayloadKind(kindByte))
	if err != nil {
		return Message{}, fmt.Errorf("wire: decode payload: %w", err)
	}
	return Message{ID: id, TimestampUS: ts, Payload: payload}, nil
}

func encodePayload(buf *bytes.Buffer, p Payload) error {
	switch m := p.(type) {
	case RegisterService:
		encodeServiceInfo(buf, m.Service)
	case ServiceRegistered:
		writeString(buf, m.Service)
		writeBool(buf, m.Success)
		writeString(buf, m.Error)
	case DiscoverServices:
		writeString(buf, m.Pattern)
	case ServicesDiscovered:
		writeU32(buf, uint32(len(m.Services)))
		for _, s := range m.Services {
			encodeServiceInfo(buf, s)
		}
	case Subscribe:
		writeString(buf, m.Service)
		encodeMode(buf, m.Mode)
		encodeQos(buf, m.Qos)
		writeString(buf, m.SchemaID)
	case SubscribeAck:
		buf.Write(m.SubscriptionID[:])
		writeBool(buf, m.Success)
		writeString(buf, m.Error)
		writeBool(buf, m.HasValue)
		if m.HasValue {
			if err := encodeValue(buf, m.CurrentValue); err != nil {
				return err
			}
		}
	case Unsubscribe:
		buf.Write(m.SubscriptionID[:])
	case Publish:
		writeString(buf, m.Service)
		writeU64(buf, m.Sequence)
		if err := encodeValue(buf, m.Value); err != nil {
			return err
		}
		writeString(buf, m.SchemaID)
	case RpcCall:
		writeString(buf, m.Service)
		writeString(buf, m.Method)
		if err := encodeValue(buf, m.Params); err != nil {
			return err
		}
		writeString(buf, m.SchemaID)
	case RpcResponse:
		buf.Write(m.CallID[:])
		writeBool(buf, m.Ok)
		if m.Ok {
			if err := encodeValue(buf, m.Result); err != nil {
				return err
			}
		} else {
			writeString(buf, m.ErrorMsg)
		}
		writeString(buf, m.SchemaID)
	case Heartbeat, Ping, Pong:
		// no fields
	case Error:
		writeString(buf, m.Message)
		writeString(buf, m.Context)
	case WatchServices:
		writeString(buf, m.Pattern)
	case ServiceEvent:
		encodeServiceInfo(buf, m.Service)
	default:
		return fmt.Errorf("wire: unknown payload type %T", p)
	}
	return nil
}

func decodePayload(r *bytes.Reader, kind PayloadKind) (Payload, error) {
	switch kind {
	case PayloadRegisterService:
		svc, err := decodeServiceInfo(r)
		if err != nil {
			return nil, err
		}
		return RegisterService{Service: svc}, nil
	case PayloadServiceRegistered:
		service, err := readString(r)
		if err != nil {
			return nil, err
		}
		success, err := readBool(r)
		if err != nil {
			return nil, err
		}
		errMsg, err := readString(r)
		if err != nil {
			return nil, err
		}
		return ServiceRegistered{Service: service, Success: success, Error: errMsg}, nil
	case PayloadDiscoverServices:
		pattern, err := readString(r)
		if err != nil {
			return nil, err
		}
		return DiscoverServices{Pattern: pattern}, nil
	case PayloadServicesDiscovered:
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		services := make([]ServiceInfo, 0, n)
		for i := uint32(0); i < n; i++ {
			svc, err := decodeServiceInfo(r)
			if err != nil {
				return nil, err
			}
			services = append(services, svc)
		}
		return ServicesDiscovered{Services: services}, nil
	case PayloadSubscribe:
		service, err := readString(r)
		if err != nil {
			return nil, err
		}
		mode, err := decodeMode(r)
		if err != nil {
			return nil, err
		}
		qos, err := decodeQos(r)
		if err != nil {
			return nil, err
		}
		schemaID, err := readString(r)
		if err != nil {
			return nil, err
		}
		return Subscribe{Service: service, Mode: mode, Qos: qos, SchemaID: schemaID}, nil
	case PayloadSubscribeAck:
		var idBytes [16]byte
		if _, err := r.Read(idBytes[:]); err != nil {
			return nil, err
		}
		id, err := uuid.FromBytes(idBytes[:])
		if err != nil {
			return nil, err
		}
		success, err := readBool(r)
		if err != nil {
			return nil, err
		}
		errMsg, err := readString(r)
		if err != nil {
			return nil, err
		}
		hasValue, err := readBool(r)
		if err != nil {
			return nil, err
		}
		var val Value
		if hasValue {
			val, err = decodeValue(r)
			if err != nil {
				return nil, err
			}
		}
		return SubscribeAck{SubscriptionID: id, Success: success, Error: errMsg, HasValue: hasValue, CurrentValue: val}, nil
	case PayloadUnsubscribe:
		var idBytes [16]byte
		if _, err := r.Read(idBytes[:]); err != nil {
			return nil, err
		}
		id, err := uuid.FromBytes(idBytes[:])
		if err != nil {
			return nil, err
		}
		return Unsubscribe{SubscriptionID: id}, nil
	case PayloadPublish:
		service, err := readString(r)
		if err != nil {
			return nil, err
		}
		seq, err := readU64(r)
		if err != nil {
			return nil, err
		}
		val, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		schemaID, err := readString(r)
		if err != nil {
			return nil, err
		}
		return Publish{Service: service, Sequence: seq, Value: val, SchemaID: schemaID}, nil
	case PayloadRpcCall:
		service, err := readString(r)
		if err != nil {
			return nil, err
		}
		method, err := readString(r)
		if err != nil {
			return nil, err
		}
		params, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		schemaID, err := readString(r)
		if err != nil {
			return nil, err
		}
		return RpcCall{Service: service, Method: method, Params: params, SchemaID: schemaID}, nil
	case PayloadRpcResponse:
		var idBytes [16]byte
		if _, err := r.Read(idBytes[:]); err != nil {
			return nil, err
		}
		id, err := uuid.FromBytes(idBytes[:])
		if err != nil {
			return nil, err
		}
		ok, err := readBool(r)
		if err != nil {
			return nil, err
		}
		var result Value
		var errMsg string
		if ok {
			result, err = decodeValue(r)
			if err != nil {
				return nil, err
			}
		} else {
			errMsg, err = readString(r)
			if err != nil {
				return nil, err
			}
		}
		schemaID, err := readString(r)
		if err != nil {
			return nil, err
		}
		return RpcResponse{CallID: id, Ok: ok, Result: result, ErrorMsg: errMsg, SchemaID: schemaID}, nil
	case PayloadHeartbeat:
		return Heartbeat{}, nil
	case PayloadPing:
		return Ping{}, nil
	case PayloadPong:
		return Pong{}, nil
	case PayloadError:
		message, err := readString(r)
		if err != nil {
			return nil, err
		}
		context, err := readString(r)
		if err != nil {
			return nil, err
		}
		return Error{Message: message, Context: context}, nil
	case PayloadWatchServices:
		pattern, err := readString(r)
		if err != nil {
			return nil, err
		}
		return WatchServices{Pattern: pattern}, nil
	case PayloadServiceEvent:
		svc, err := decodeServiceInfo(r)
		if err != nil {
			return nil, err
		}
		return ServiceEvent{Service: svc}, nil
	default:
		return nil, fmt.Errorf("wire: unknown payload kind %d", kindByteOf(kind))
	}
}

func kindByteOf(k PayloadKind) byte { return byte(k) }

func encodeServiceInfo(buf *bytes.Buffer, s ServiceInfo) {
	writeString(buf, s.Name)
	writeString(buf, s.Address)
	buf.WriteByte(byte(s.ServiceType))
	writeString(buf, s.SchemaID)
	writeU64(buf, s.TTLMillis)
	writeU32(buf, uint32(len(s.Tags)))
	for _, t := range s.Tags {
		writeString(buf, t)
	}
}

func decodeServiceInfo(r *bytes.Reader) (ServiceInfo, error) {
	name, err := readString(r)
	if err != nil {
		return ServiceInfo{}, err
	}
	addr, err := readString(r)
	if err != nil {
		return ServiceInfo{}, err
	}
	typByte, err := r.ReadByte()
	if err != nil {
		return ServiceInfo{}, err
	}
	schemaID, err := readString(r)
	if err != nil {
		return ServiceInfo{}, err
	}
	ttl, err := readU64(r)
	if err != nil {
		return ServiceInfo{}, err
	}
	n, err := readU32(r)
	if err != nil {
		return ServiceInfo{}, err
	}
	tags := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		tag, err := readString(r)
		if err != nil {
			return ServiceInfo{}, err
		}
		tags = append(tags, tag)
	}
	return ServiceInfo{
		Name:        name,
		Address:     addr,
		ServiceType: ServiceType(typByte),
		SchemaID:    schemaID,
		TTLMillis:   ttl,
		Tags:        tags,
	}, nil
}

func encodeMode(buf *bytes.Buffer, m SubscriptionMode) {
	buf.WriteByte(byte(m.Kind))
	if m.Kind == ModePeriodic {
		writeU64(buf, m.IntervalMS)
	}
}

func decodeMode(r *bytes.Reader) (SubscriptionMode, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return SubscriptionMode{}, err
	}
	m := SubscriptionMode{Kind: ModeKind(kindByte)}
	if m.Kind == ModePeriodic {
		interval, err := readU64(r)
		if err != nil {
			return SubscriptionMode{}, err
		}
		m.IntervalMS = interval
	}
	return m, nil
}

func encodeQos(buf *bytes.Buffer, q QosParams) {
	buf.WriteByte(byte(q.Reliability))
	writeBool(buf, q.Durability)
	writeU32(buf, q.MaxQueueSize)
}

func decodeQos(r *bytes.Reader) (QosParams, error) {
	relByte, err := r.ReadByte()
	if err != nil {
		return QosParams{}, err
	}
	durability, err := readBool(r)
	if err != nil {
		return QosParams{}, err
	}
	maxQueue, err := readU32(r)
	if err != nil {
		return QosParams{}, err
	}
	return QosParams{Reliability: Reliability(relByte), Durability: durability, MaxQueueSize: maxQueue}, nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	buf.WriteByte(byte(v.Kind))
	switch v.Kind {
	case KindBool:
		writeBool(buf, v.Bool)
	case KindI32:
		writeU32(buf, uint32(v.I32))
	case KindI64:
		writeU64(buf, uint64(v.I64))
	case KindF32:
		writeU32(buf, math.Float32bits(v.F32))
	case KindF64:
		writeU64(buf, math.Float64bits(v.F64))
	case KindString:
		writeString(buf, v.Str)
	case KindBytes:
		writeU32(buf, uint32(len(v.Bytes)))
		buf.Write(v.Bytes)
	case KindArray:
		writeU32(buf, uint32(len(v.Array)))
		for _, elem := range v.Array {
			if err := encodeValue(buf, elem); err != nil {
				return err
			}
		}
	case KindMap:
		writeU32(buf, uint32(len(v.Map)))
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeString(buf, k)
			if err := encodeValue(buf, v.Map[k]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("wire: unknown value kind %d", byte(v.Kind))
	}
	return nil
}

func decodeValue(r *bytes.Reader) (Value, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	kind := Kind(kindByte)
	switch kind {
	case KindBool:
		b, err := readBool(r)
		if err != nil {
			return Value{}, err
		}
		return NewBool(b), nil
	case KindI32:
		u, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		return NewI32(int32(u)), nil
	case KindI64:
		u, err := readU64(r)
		if err != nil {
			return Value{}, err
		}
		return NewI64(int64(u)), nil
	case KindF32:
		u, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		return NewF32(math.Float32frombits(u)), nil
	case KindF64:
		u, err := readU64(r)
		if err != nil {
			return Value{}, err
		}
		return NewF64(math.Float64frombits(u)), nil
	case KindString:
		s, err := readString(r)
		if err != nil {
			return Value{}, err
		}
		return NewString(s), nil
	case KindBytes:
		n, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		b := make([]byte, n)
		if _, err := readFull(r, b); err != nil {
			return Value{}, err
		}
		return NewBytes(b), nil
	case KindArray:
		n, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		arr := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			elem, err := decodeValue(r)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, elem)
		}
		return NewArray(arr), nil
	case KindMap:
		n, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		m := make(map[string]Value, n)
		for i := uint32(0); i < n; i++ {
			k, err := readString(r)
			if err != nil {
				return Value{}, err
			}
			val, err := decodeValue(r)
			if err != nil {
				return Value{}, err
			}
			m[k] = val
		}
		return NewMap(m), nil
	default:
		return Value{}, fmt.Errorf("wire: unknown value kind %d", kindByte)
	}
}

// --- primitive helpers ---

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func readBool(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := readFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	total := 0
	for total < len(b) {
		n, err := r.Read(b[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("wire: short read")
		}
	}
	return total, nil
}
