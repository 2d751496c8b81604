package dds

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/ddsbox/pkg/l0/ad9910"
	"github.com/robotalks/ddsbox/pkg/l0/comm"
)

// ParseSlot parses a slot as printed by the box ("3" or "I3") and returns
// it zero based.
func ParseSlot(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(s), "I"))
	if err != nil || n < 1 || n > comm.MaxSlots {
		return 0, fmt.Errorf("invalid SLOT %q, expect 1-%d", s, comm.MaxSlots)
	}
	return n - 1, nil
}

// ParseAddr parses a register address in hex.
func ParseAddr(s string) (byte, error) {
	val, err := strconv.ParseUint(trimHex(s), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid ADDR %q", s)
	}
	return byte(val), nil
}

// ParseData parses register data in hex, most significant byte first.
// An odd number of digits is padded with a leading zero.
func ParseData(s string) ([]byte, error) {
	digits := trimHex(s)
	if len(digits)%2 != 0 {
		digits = "0" + digits
	}
	data, err := hex.DecodeString(digits)
	if err != nil || len(data) == 0 || len(data) > comm.MaxDataLen {
		return nil, fmt.Errorf("invalid DATA %q, expect 1-%d hex bytes", s, comm.MaxDataLen)
	}
	return data, nil
}

// ParseWord parses a hex tuning word of bits width.
func ParseWord(s string, bits int) (uint64, error) {
	val, err := strconv.ParseUint(trimHex(s), 16, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid %d-bit word %q", bits, s)
	}
	return val, nil
}

func trimHex(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

// ChannelState encodes switching the output of a chip fully on or off
// through its amplitude.
func ChannelState(slot int, on bool) string {
	var asf uint16
	if on {
		asf = ad9910.MaxASF
	}
	return comm.EncodeAmplitude(slot, asf)
}

// FormatRead prints a read result, decoding the tuning registers.
func FormatRead(res *comm.ReadResult, sysClock float64) string {
	out := fmt.Sprintf("I%d 0x%02X: % X", res.Slot+1, res.Addr, res.Data)
	switch {
	case res.Addr == ad9910.Profile0 || res.Addr == ad9910.Profile1:
		if len(res.Data) == ad9910.MaxRegisterLen {
			p := ad9910.ParseProfile(res.Data)
			out += fmt.Sprintf(" (%.6f MHz, amplitude %.4f, phase 0x%04X)",
				p.Frequency(sysClock)/1e6, ad9910.ASFToAmplitude(p.ASF), p.POW)
		}
	case res.Addr == ad9910.FTW && len(res.Data) == 4:
		ftw := uint32(res.Data[0])<<24 | uint32(res.Data[1])<<16 | uint32(res.Data[2])<<8 | uint32(res.Data[3])
		out += fmt.Sprintf(" (%.6f MHz)", ad9910.FTWToFrequency(ftw, sysClock)/1e6)
	}
	return out
}
