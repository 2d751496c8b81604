package comm

import (
	"fmt"
	"strconv"
	"strings"
)

// Reply lines printed by the box.
const (
	DoneLine          = ">Done"
	ErrorPrefix       = ">Error: "
	TestModeLine      = ">Test Mode"
	ResetLine         = ">Master Reset"
	WriteModeLine     = ">Write Mode"
	ReadModeLine      = ">Read Mode"
	FrequencyModeLine = ">Frequency Mode"
	AmplitudeModeLine = ">Amplitude Mode"
	PhaseModeLine     = ">Phase Mode"
	UnimplementedLine = ">Unimplemented"
	BannerLine        = ">AD9910 Controller"
	PresencePrefix    = ">>Present Devices: "
	ReadEchoPrefix    = ">>AD9910 Read: "
)

// Reply collects the lines printed for one command, without the final
// DoneLine.
type Reply struct {
	Lines []string
}

// String joins the lines.
func (r *Reply) String() string {
	return strings.Join(r.Lines, "\n")
}

// ReadResult is a decoded read echo.
type ReadResult struct {
	Slot int
	Addr byte
	Data []byte
}

// ParseRead decodes the read echo line.
func (r *Reply) ParseRead() (*ReadResult, error) {
	line, ok := r.find(ReadEchoPrefix)
	if !ok {
		return nil, &ReplyError{Line: r.String()}
	}
	parts := strings.SplitN(line, ", ", 3)
	if len(parts) != 3 ||
		!strings.HasPrefix(parts[0], "ID=") ||
		!strings.HasPrefix(parts[1], "Addr=0x") ||
		!strings.HasPrefix(parts[2], "Data=0x") {
		return nil, &ReplyError{Line: line}
	}
	slot, err := strconv.Atoi(parts[0][3:])
	if err != nil {
		return nil, &ReplyError{Line: line}
	}
	addr, err := strconv.ParseUint(parts[1][7:], 16, 8)
	if err != nil {
		return nil, &ReplyError{Line: line}
	}
	res := &ReadResult{Slot: slot, Addr: byte(addr)}
	for _, field := range strings.Fields(parts[2][7:]) {
		b, err := strconv.ParseUint(field, 16, 8)
		if err != nil {
			return nil, &ReplyError{Line: line}
		}
		res.Data = append(res.Data, byte(b))
	}
	return res, nil
}

// ParsePresence decodes the zero based slots reported present.
func (r *Reply) ParsePresence() ([]int, error) {
	line, ok := r.find(PresencePrefix)
	if !ok {
		return nil, &ReplyError{Line: r.String()}
	}
	slots := []int{}
	for _, field := range strings.Fields(line) {
		if !strings.HasPrefix(field, "I") {
			return nil, &ReplyError{Line: line}
		}
		n, err := strconv.Atoi(field[1:])
		if err != nil || n < 1 {
			return nil, &ReplyError{Line: line}
		}
		slots = append(slots, n-1)
	}
	return slots, nil
}

func (r *Reply) find(prefix string) (string, bool) {
	for _, line := range r.Lines {
		if strings.HasPrefix(line, prefix) {
			return line[len(prefix):], true
		}
	}
	return "", false
}

// Command strings without parameters.
const (
	CmdReset         = "X"
	CmdCheckPresence = "?"
	CmdIdentify      = "*IDN?"
	CmdAbort         = "/"
)

// EncodeTest encodes a test command for a zero based slot.
func EncodeTest(slot int) string {
	return fmt.Sprintf("I%dT", slot+1)
}

// EncodeRead encodes a register read, including the terminator.
func EncodeRead(slot int, addr byte) string {
	return fmt.Sprintf("I%dR%02x\n", slot+1, addr)
}

// EncodeWrite encodes a register write.
func EncodeWrite(slot int, addr byte, data []byte) (string, error) {
	if len(data) == 0 || len(data) > MaxDataLen {
		return "", fmt.Errorf("data length %d out of range 1-%d", len(data), MaxDataLen)
	}
	return fmt.Sprintf("I%dR%02xL%dD%x", slot+1, addr, len(data), data), nil
}

// EncodeFrequency encodes a frequency tuning word update.
func EncodeFrequency(slot int, ftw uint32) string {
	return fmt.Sprintf("I%dF%08x", slot+1, ftw)
}

// EncodeAmplitude encodes an amplitude scale factor update.
func EncodeAmplitude(slot int, asf uint16) string {
	return fmt.Sprintf("I%dA%04x", slot+1, asf)
}

// EncodePhase encodes a phase offset update.
func EncodePhase(slot int, pow uint16) string {
	return fmt.Sprintf("I%dP%04x", slot+1, pow)
}
