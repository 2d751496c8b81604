package comm

// Kind is the kind of a command.
type Kind int

// Command kinds.
const (
	KindIdle Kind = iota
	KindTest
	KindIdentify
	KindReset
	KindCheckPresence
	KindWriteRegister
	KindReadRegister
	KindSetFrequency
	KindSetAmplitude
	KindSetPhase
)

var kindNames = [...]string{
	KindIdle:          "Idle",
	KindTest:          "Test",
	KindIdentify:      "Identify",
	KindReset:         "Reset",
	KindCheckPresence: "CheckPresence",
	KindWriteRegister: "WriteRegister",
	KindReadRegister:  "ReadRegister",
	KindSetFrequency:  "SetFrequency",
	KindSetAmplitude:  "SetAmplitude",
	KindSetPhase:      "SetPhase",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// HasSlot indicates the command addresses a single slot.
func (k Kind) HasSlot() bool {
	switch k {
	case KindTest, KindWriteRegister, KindReadRegister, KindSetFrequency, KindSetAmplitude, KindSetPhase:
		return true
	}
	return false
}

const (
	// MaxSlots is the highest slot number accepted on the wire.
	MaxSlots = 8
	// MaxDataLen is the maximum number of bytes in a write command.
	MaxDataLen = 9
)

// Command is a parsed command. Payloads are kept as received
// (ASCII hex digits) and decoded on demand.
type Command struct {
	Kind Kind
	// Slot is zero based.
	Slot int

	Address   [2]byte
	DataLen   int
	Data      [2 * MaxDataLen]byte
	Frequency [8]byte
	Amplitude [4]byte
	Phase     [4]byte
}

// RegisterAddress decodes the register address.
func (c *Command) RegisterAddress() byte {
	return HexByte(c.Address[0], c.Address[1])
}

// DataBytes decodes the data of a write command.
func (c *Command) DataBytes() []byte {
	return decodeHex(c.Data[:2*c.DataLen])
}

// FrequencyWord decodes the 4-byte frequency tuning word, MSB first.
func (c *Command) FrequencyWord() []byte {
	return decodeHex(c.Frequency[:])
}

// AmplitudeWord decodes the 2-byte amplitude scale factor, MSB first.
func (c *Command) AmplitudeWord() []byte {
	return decodeHex(c.Amplitude[:])
}

// PhaseWord decodes the 2-byte phase offset word, MSB first.
func (c *Command) PhaseWord() []byte {
	return decodeHex(c.Phase[:])
}

// IsHexDigit indicates b is accepted as a payload hex digit.
// Only lowercase letters are accepted.
func IsHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f')
}

// IsAddressDigit indicates b is accepted as a register address digit,
// letters in either case.
func IsAddressDigit(b byte) bool {
	return IsHexDigit(b) || (b >= 'A' && b <= 'F')
}

func hexNibble(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

// HexByte decodes two hex digits into a byte.
func HexByte(hi, lo byte) byte {
	return hexNibble(hi)<<4 | hexNibble(lo)
}

func decodeHex(digits []byte) []byte {
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = HexByte(digits[2*i], digits[2*i+1])
	}
	return out
}
