package msgs

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"
)

// TypeID masks
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
)

// Message Kinds
const (
	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

// Typed wraps a message with type information.
type Typed struct {
	TypeID  uint32 `protobuf:"varint,1,opt,name=type_id,proto3" json:"type_id,omitempty"`
	Message []byte `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Typed) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Typed) Reset() { *m = Typed{} }

// String implements proto.Message.
func (m *Typed) String() string { return proto.CompactTextString(m) }

// ErrUnknownType indicates unknown type id.
type ErrUnknownType struct {
	TypeID uint32
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

// ErrNotSerializable indicates the message is not serializable.
var ErrNotSerializable = errors.New("not serializable message")

// SerializableMessage can be serialized over the wire.
type SerializableMessage interface {
	proto.Message
	TypeID() uint32
}

// MessageTypes maps type IDs to message factories.
var MessageTypes = map[uint32]func() SerializableMessage{
	CommandEventTypeID: func() SerializableMessage { return &CommandEvent{} },
	BoxStatusTypeID:    func() SerializableMessage { return &BoxStatus{} },
}

// TypedFrom creates a Typed from a serializable message.
func TypedFrom(msg proto.Message) (*Typed, error) {
	s, ok := msg.(SerializableMessage)
	if !ok {
		return nil, ErrNotSerializable
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return nil, err
	}
	return &Typed{TypeID: s.TypeID(), Message: data}, nil
}

// Decode decodes the packet into actual message.
func (m *Typed) Decode() (SerializableMessage, error) {
	factory, ok := MessageTypes[m.TypeID]
	if !ok {
		return nil, &ErrUnknownType{TypeID: m.TypeID}
	}
	msg := factory()
	if err := proto.Unmarshal(m.Message, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode encodes the Typed to bytes.
func (m *Typed) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// Kind gets message kind from type ID.
func (m *Typed) Kind() uint32 {
	return m.TypeID & TypeIDMaskKind
}

// IsEvent determines if the message is an event.
func (m *Typed) IsEvent() bool {
	return m.Kind() == TypeIDKindEvent
}

// EncodeMessage wraps msg in Typed and encodes it.
func EncodeMessage(msg proto.Message) ([]byte, error) {
	typed, err := TypedFrom(msg)
	if err != nil {
		return nil, err
	}
	return typed.Encode()
}

// DecodeMessage decodes bytes produced by EncodeMessage.
func DecodeMessage(data []byte) (SerializableMessage, error) {
	var typed Typed
	if err := proto.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	return typed.Decode()
}
