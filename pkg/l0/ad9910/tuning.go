package ad9910

import (
	"encoding/binary"
	"math"
)

const (
	// DefaultSysClock is the system clock of the reference board in Hz.
	DefaultSysClock = 1e9
	// MaxASF is the full scale 14-bit amplitude scale factor.
	MaxASF uint16 = 0x3fff
)

// FrequencyToFTW converts an output frequency to a 32-bit tuning word.
// Frequencies outside [0, sysClock) are clamped.
func FrequencyToFTW(hz, sysClock float64) uint32 {
	if hz <= 0 || sysClock <= 0 {
		return 0
	}
	ftw := math.Round(hz / sysClock * (1 << 32))
	if ftw >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ftw)
}

// FTWToFrequency converts a tuning word to the output frequency in Hz.
func FTWToFrequency(ftw uint32, sysClock float64) float64 {
	return float64(ftw) * sysClock / (1 << 32)
}

// AmplitudeToASF converts a fraction of full scale to the 14-bit ASF.
func AmplitudeToASF(frac float64) uint16 {
	if frac <= 0 {
		return 0
	}
	if frac >= 1 {
		return MaxASF
	}
	return uint16(math.Round(frac * float64(MaxASF)))
}

// ASFToAmplitude converts the ASF to a fraction of full scale.
func ASFToAmplitude(asf uint16) float64 {
	return float64(asf&MaxASF) / float64(MaxASF)
}

// DegreesToPOW converts a phase in degrees to the 16-bit offset word.
func DegreesToPOW(deg float64) uint16 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return uint16(uint32(math.Round(deg/360*65536)) & 0xffff)
}

// Profile is the content of a single tone profile register.
type Profile struct {
	ASF uint16
	POW uint16
	FTW uint32
}

// ParseProfile decodes a profile register. Short data yields zero fields.
func ParseProfile(data []byte) (p Profile) {
	if len(data) < MaxRegisterLen {
		return
	}
	p.ASF = binary.BigEndian.Uint16(data[0:2]) & MaxASF
	p.POW = binary.BigEndian.Uint16(data[2:4])
	p.FTW = binary.BigEndian.Uint32(data[4:8])
	return
}

// Bytes encodes the profile register.
func (p Profile) Bytes() []byte {
	data := make([]byte, MaxRegisterLen)
	binary.BigEndian.PutUint16(data[0:2], p.ASF&MaxASF)
	binary.BigEndian.PutUint16(data[2:4], p.POW)
	binary.BigEndian.PutUint32(data[4:8], p.FTW)
	return data
}

// Frequency returns the output frequency for a system clock.
func (p Profile) Frequency(sysClock float64) float64 {
	return FTWToFrequency(p.FTW, sysClock)
}
