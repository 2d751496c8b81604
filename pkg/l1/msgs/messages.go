package msgs

import (
	"github.com/golang/protobuf/proto"
)

// CommandEvent reports a command executed by a box.
type CommandEvent struct {
	BoxID string `protobuf:"bytes,1,opt,name=box_id,proto3" json:"box_id,omitempty"`
	Kind  string `protobuf:"bytes,2,opt,name=kind,proto3" json:"kind,omitempty"`
	// Slot is zero based.
	Slot        uint32  `protobuf:"varint,3,opt,name=slot,proto3" json:"slot,omitempty"`
	Address     uint32  `protobuf:"varint,4,opt,name=address,proto3" json:"address,omitempty"`
	Data        []byte  `protobuf:"bytes,5,opt,name=data,proto3" json:"data,omitempty"`
	Error       string  `protobuf:"bytes,6,opt,name=error,proto3" json:"error,omitempty"`
	Transcript  string  `protobuf:"bytes,7,opt,name=transcript,proto3" json:"transcript,omitempty"`
	TimestampNs int64   `protobuf:"varint,8,opt,name=timestamp_ns,proto3" json:"timestamp_ns,omitempty"`
	Present     []int32 `protobuf:"varint,9,rep,packed,name=present,proto3" json:"present,omitempty"`
	DurationNs  int64   `protobuf:"varint,10,opt,name=duration_ns,proto3" json:"duration_ns,omitempty"`
}

// TypeID implements SerializableMessage.
func (m *CommandEvent) TypeID() uint32 { return CommandEventTypeID }

// ProtoMessage implements proto.Message.
func (m *CommandEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandEvent) Reset() { *m = CommandEvent{} }

// String implements proto.Message.
func (m *CommandEvent) String() string { return proto.CompactTextString(m) }

// BoxStatus is published periodically by a box.
type BoxStatus struct {
	BoxID       string `protobuf:"bytes,1,opt,name=box_id,proto3" json:"box_id,omitempty"`
	Mode        string `protobuf:"bytes,2,opt,name=mode,proto3" json:"mode,omitempty"`
	ParseState  string `protobuf:"bytes,3,opt,name=parse_state,proto3" json:"parse_state,omitempty"`
	Commands    uint64 `protobuf:"varint,4,opt,name=commands,proto3" json:"commands,omitempty"`
	Errors      uint64 `protobuf:"varint,5,opt,name=errors,proto3" json:"errors,omitempty"`
	Dropped     uint64 `protobuf:"varint,6,opt,name=dropped,proto3" json:"dropped,omitempty"`
	TimestampNs int64  `protobuf:"varint,7,opt,name=timestamp_ns,proto3" json:"timestamp_ns,omitempty"`
}

// TypeID implements SerializableMessage.
func (m *BoxStatus) TypeID() uint32 { return BoxStatusTypeID }

// ProtoMessage implements proto.Message.
func (m *BoxStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *BoxStatus) Reset() { *m = BoxStatus{} }

// String implements proto.Message.
func (m *BoxStatus) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupBox uint32 = 0x00010000
)

// TypeIDs
const (
	CommandEventTypeID uint32 = GroupBox | TypeIDKindEvent | 0x0000
	BoxStatusTypeID    uint32 = GroupBox | TypeIDKindEvent | 0x0001
)
