// Package ad9910 drives AD9910 DDS chips sharing one serial bus.
package ad9910

// Register addresses.
const (
	CFR1          byte = 0x00
	CFR2          byte = 0x01
	CFR3          byte = 0x02
	AuxDAC        byte = 0x03
	IOUpdateRate  byte = 0x04
	FTW           byte = 0x07
	POW           byte = 0x08
	ASF           byte = 0x09
	MultiChipSync byte = 0x0A
	RampLimit     byte = 0x0B
	RampStep      byte = 0x0C
	RampRate      byte = 0x0D
	Profile0      byte = 0x0E
	Profile1      byte = 0x0F
)

const (
	// NumRegisters is the size of the register address space.
	NumRegisters = 16
	// MaxRegisterLen is the widest register in bytes.
	MaxRegisterLen = 8
	// ReadFlag is OR'ed into the instruction byte for a read.
	ReadFlag byte = 0x80

	// PresenceProbe is the register read to detect a chip.
	PresenceProbe = IOUpdateRate
	// PresenceByte is the byte index of PresenceProbe which is non-zero
	// on a responding chip.
	PresenceByte = 3
)

var registerLens = [NumRegisters]int{4, 4, 4, 4, 4, 0, 0, 4, 2, 4, 4, 8, 8, 4, 8, 8}

// RegisterLen returns the byte length of a register.
// Zero means the register can't be transferred.
func RegisterLen(addr byte) int {
	if int(addr) >= NumRegisters {
		return 0
	}
	return registerLens[addr]
}

// Transferable indicates the register has a non-zero length.
func Transferable(addr byte) bool {
	return RegisterLen(addr) > 0
}

// Register contents written during initialization.
var (
	// CFR1ThreeWire enables 3-wire serial mode (SDIO input only).
	CFR1ThreeWire = []byte{0x00, 0x00, 0x00, 0x02}
	// CFR2AmplitudeFromProfile enables the amplitude scale factor from
	// single tone profiles.
	CFR2AmplitudeFromProfile = []byte{0x01, 0x40, 0x08, 0x20}
	// CFR3NoRefDivider bypasses the reference clock divider.
	CFR3NoRefDivider = []byte{0x1f, 0x3f, 0xc0, 0x00}
	// CFR2Test is the test pattern. Byte 1 is toggled by TestPattern.
	CFR2Test = []byte{0x00, 0x00, 0x08, 0x20}
	// DefaultProfile0 is used in place of a profile read when read back
	// is disabled.
	DefaultProfile0 = []byte{0x08, 0xb5, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
)

// TestPattern returns CFR2Test with the SYNC_CLK enable bit set or cleared.
func TestPattern(syncClk bool) []byte {
	data := make([]byte, len(CFR2Test))
	copy(data, CFR2Test)
	if syncClk {
		data[1] = 0x40
	}
	return data
}
