// Package dds provides ddsctl commands operating the chips of a box.
package dds

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/ddsbox/pkg/cli/sh"
	"github.com/robotalks/ddsbox/pkg/l0/ad9910"
	"github.com/robotalks/ddsbox/pkg/l0/comm"
)

var sysClockMHz = ad9910.DefaultSysClock / 1e6

func init() {
	flag.Float64Var(&sysClockMHz, "sysclk", sysClockMHz, "DDS system clock in MHz.")
}

func sysClock() float64 {
	return sysClockMHz * 1e6
}

// slotArgs parses SLOT and checks the number of remaining args.
func slotArgs(c *ishell.Context, names ...string) (int, bool) {
	if len(c.Args) < 1+len(names) {
		c.Err(fmt.Errorf("%s required", strings.Join(append([]string{"SLOT"}, names...), " ")))
		return 0, false
	}
	slot, err := ParseSlot(c.Args[0])
	if err != nil {
		c.Err(err)
		return 0, false
	}
	return slot, true
}

var (
	// IdentifyCmd prints the box identity.
	IdentifyCmd = ishell.Cmd{
		Name:    "idn",
		Aliases: []string{"id"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, comm.CmdIdentify)
		}),
	}

	// CheckCmd lists the present chips.
	CheckCmd = ishell.Cmd{
		Name:    "check",
		Aliases: []string{"?"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			reply, err := sh.Do(c, comm.CmdCheckPresence)
			if sh.ShellFrom(c).OutputJSON {
				sh.PrintJSON(c, sh.NewResult(comm.CmdCheckPresence, reply, err))
				return
			}
			if err != nil {
				return
			}
			slots, err := reply.ParsePresence()
			if err != nil {
				c.Err(err)
				return
			}
			if len(slots) == 0 {
				c.Println("No chips present")
				return
			}
			names := make([]string, len(slots))
			for n, slot := range slots {
				names[n] = "I" + strconv.Itoa(slot+1)
			}
			c.Println("Present: " + strings.Join(names, " "))
		}),
	}

	// ResetCmd resets all chips.
	ResetCmd = ishell.Cmd{
		Name:    "reset",
		Aliases: []string{"x"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, comm.CmdReset)
		}),
	}

	// TestCmd writes the test pattern to a chip.
	TestCmd = ishell.Cmd{
		Name:    "test",
		Aliases: []string{"t"},
		Help:    "SLOT",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if slot, ok := slotArgs(c); ok {
				sh.DoCommand(c, comm.EncodeTest(slot))
			}
		}),
	}

	// ReadCmd reads a register.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "SLOT ADDR(hex)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			slot, ok := slotArgs(c, "ADDR")
			if !ok {
				return
			}
			addr, err := ParseAddr(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			cmd := comm.EncodeRead(slot, addr)
			reply, err := sh.Do(c, cmd)
			if sh.ShellFrom(c).OutputJSON {
				sh.PrintJSON(c, sh.NewResult(cmd, reply, err))
				return
			}
			if err != nil {
				return
			}
			res, err := reply.ParseRead()
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(FormatRead(res, sysClock()))
		}),
	}

	// WriteCmd writes a register.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "SLOT ADDR(hex) DATA(hex)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			slot, ok := slotArgs(c, "ADDR", "DATA")
			if !ok {
				return
			}
			addr, err := ParseAddr(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			data, err := ParseData(c.Args[2])
			if err != nil {
				c.Err(err)
				return
			}
			cmd, err := comm.EncodeWrite(slot, addr, data)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, cmd)
		}),
	}

	// FrequencyCmd sets the output frequency.
	FrequencyCmd = ishell.Cmd{
		Name:    "freq",
		Aliases: []string{"f"},
		Help:    "SLOT FREQ(MHz)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			slot, ok := slotArgs(c, "FREQ")
			if !ok {
				return
			}
			mhz, err := strconv.ParseFloat(c.Args[1], 64)
			if err != nil || mhz < 0 || mhz*1e6 >= sysClock()/2 {
				c.Err(fmt.Errorf("invalid FREQ %q, expect 0-%g MHz", c.Args[1], sysClockMHz/2))
				return
			}
			ftw := ad9910.FrequencyToFTW(mhz*1e6, sysClock())
			if err = sh.DoCommand(c, comm.EncodeFrequency(slot, ftw)); err == nil && !sh.ShellFrom(c).OutputJSON {
				c.Printf("FTW 0x%08X (%.6f MHz)\n", ftw, ad9910.FTWToFrequency(ftw, sysClock())/1e6)
			}
		}),
	}

	// FTWCmd sets the frequency tuning word.
	FTWCmd = ishell.Cmd{
		Name: "ftw",
		Help: "SLOT FTW(hex)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			slot, ok := slotArgs(c, "FTW")
			if !ok {
				return
			}
			ftw, err := ParseWord(c.Args[1], 32)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, comm.EncodeFrequency(slot, uint32(ftw)))
		}),
	}

	// AmplitudeCmd sets the output amplitude.
	AmplitudeCmd = ishell.Cmd{
		Name:    "amp",
		Aliases: []string{"a"},
		Help:    "SLOT AMPLITUDE(0-1)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			slot, ok := slotArgs(c, "AMPLITUDE")
			if !ok {
				return
			}
			frac, err := strconv.ParseFloat(c.Args[1], 64)
			if err != nil || frac < 0 || frac > 1 {
				c.Err(fmt.Errorf("invalid AMPLITUDE %q, expect 0-1", c.Args[1]))
				return
			}
			asf := ad9910.AmplitudeToASF(frac)
			if err = sh.DoCommand(c, comm.EncodeAmplitude(slot, asf)); err == nil && !sh.ShellFrom(c).OutputJSON {
				c.Printf("ASF 0x%04X\n", asf)
			}
		}),
	}

	// ASFCmd sets the amplitude scale factor.
	ASFCmd = ishell.Cmd{
		Name: "asf",
		Help: "SLOT ASF(hex)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			slot, ok := slotArgs(c, "ASF")
			if !ok {
				return
			}
			asf, err := ParseWord(c.Args[1], 16)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, comm.EncodeAmplitude(slot, uint16(asf)))
		}),
	}

	// PhaseCmd sets the phase offset. The box acknowledges without
	// changing the chip.
	PhaseCmd = ishell.Cmd{
		Name:    "phase",
		Aliases: []string{"p"},
		Help:    "SLOT PHASE(degrees)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			slot, ok := slotArgs(c, "PHASE")
			if !ok {
				return
			}
			deg, err := strconv.ParseFloat(c.Args[1], 64)
			if err != nil {
				c.Err(fmt.Errorf("invalid PHASE %q", c.Args[1]))
				return
			}
			sh.DoCommand(c, comm.EncodePhase(slot, ad9910.DegreesToPOW(deg)))
		}),
	}

	// OnCmd sets the output to full scale.
	OnCmd = ishell.Cmd{
		Name: "on",
		Help: "SLOT",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if slot, ok := slotArgs(c); ok {
				sh.DoCommand(c, ChannelState(slot, true))
			}
		}),
	}

	// OffCmd sets the output amplitude to zero.
	OffCmd = ishell.Cmd{
		Name: "off",
		Help: "SLOT",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if slot, ok := slotArgs(c); ok {
				sh.DoCommand(c, ChannelState(slot, false))
			}
		}),
	}

	// RawCmd sends text as is, followed by a newline.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "TEXT",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("TEXT required"))
				return
			}
			sh.DoCommand(c, strings.Join(c.Args, "")+"\n")
		}),
	}

	// AbortCmd discards a partially received command on the box.
	AbortCmd = ishell.Cmd{
		Name:    "abort",
		Aliases: []string{"/"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if err := sh.ShellFrom(c).Conn.Client.Abort(); err != nil {
				c.Err(err)
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&IdentifyCmd,
		&CheckCmd,
		&ResetCmd,
		&TestCmd,
		&ReadCmd,
		&WriteCmd,
		&FrequencyCmd,
		&FTWCmd,
		&AmplitudeCmd,
		&ASFCmd,
		&PhaseCmd,
		&OnCmd,
		&OffCmd,
		&RawCmd,
		&AbortCmd,
	)
}
