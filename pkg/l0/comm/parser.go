package comm

// ParseState is the state of the command parser.
type ParseState int

// Parser states.
const (
	StateIdle ParseState = iota
	StateReadingIndex
	StateReadingRegisterAddress
	StateReadingDataLength
	StateReadingData
	StateReadingFrequency
	StateReadingAmplitude
	StateReadingPhase
	StateReadingIdentify
)

var parseStateNames = [...]string{
	StateIdle:                   "Idle",
	StateReadingIndex:           "ReadingIndex",
	StateReadingRegisterAddress: "ReadingRegisterAddress",
	StateReadingDataLength:      "ReadingDataLength",
	StateReadingData:            "ReadingData",
	StateReadingFrequency:       "ReadingFrequency",
	StateReadingAmplitude:       "ReadingAmplitude",
	StateReadingPhase:           "ReadingPhase",
	StateReadingIdentify:        "ReadingIdentify",
}

func (s ParseState) String() string {
	if s >= 0 && int(s) < len(parseStateNames) {
		return parseStateNames[s]
	}
	return "Unknown"
}

// Tokens with special meaning outside a command.
const (
	TokenAbort    byte = '/'
	TokenIndex    byte = 'I'
	TokenReset    byte = 'X'
	TokenPresence byte = '?'
	TokenIdentify byte = '*'
)

var identifySuffix = [...]byte{'I', 'D', 'N', '?'}

// Parser parses command bytes. It never blocks and allocates nothing.
type Parser struct {
	state ParseState
	pos   int
	cmd   Command
}

// State gets the current parse state.
func (p *Parser) State() ParseState {
	return p.state
}

// Reset discards any partial command.
func (p *Parser) Reset() {
	p.state, p.pos, p.cmd = StateIdle, 0, Command{}
}

// Parse consumes one byte. It returns the command when the byte completes one.
// Malformed input silently returns the parser to Idle.
func (p *Parser) Parse(b byte) (cmd Command, ok bool) {
	if b == TokenAbort {
		p.Reset()
		return
	}
	switch p.state {
	case StateIdle:
		switch b {
		case TokenIndex:
			p.enter(StateReadingIndex)
		case TokenReset:
			return p.resolve(KindReset)
		case TokenPresence:
			return p.resolve(KindCheckPresence)
		case TokenIdentify:
			p.enter(StateReadingIdentify)
		}
	case StateReadingIdentify:
		if b != identifySuffix[p.pos] {
			p.Reset()
			return
		}
		if p.pos++; p.pos == len(identifySuffix) {
			return p.resolve(KindIdentify)
		}
	case StateReadingIndex:
		if p.pos == 0 {
			if b < '1' || b >= '1'+MaxSlots {
				p.Reset()
				return
			}
			p.cmd.Slot, p.pos = int(b-'1'), 1
			return
		}
		switch b {
		case 'T':
			return p.resolve(KindTest)
		case 'R':
			p.enter(StateReadingRegisterAddress)
		case 'F':
			p.enter(StateReadingFrequency)
		case 'A':
			p.enter(StateReadingAmplitude)
		case 'P':
			p.enter(StateReadingPhase)
		default:
			p.Reset()
		}
	case StateReadingRegisterAddress:
		if p.pos < len(p.cmd.Address) {
			p.appendDigit(p.cmd.Address[:], b, IsAddressDigit)
			return
		}
		if b == 'L' {
			p.enter(StateReadingDataLength)
			return
		}
		// any other byte terminates a read and is consumed.
		return p.resolve(KindReadRegister)
	case StateReadingDataLength:
		if p.pos == 0 {
			if b < '1' || b > '0'+MaxDataLen {
				p.Reset()
				return
			}
			p.cmd.DataLen, p.pos = int(b-'0'), 1
			return
		}
		if b != 'D' {
			p.Reset()
			return
		}
		p.enter(StateReadingData)
	case StateReadingData:
		if p.appendHex(p.cmd.Data[:2*p.cmd.DataLen], b) {
			return p.resolve(KindWriteRegister)
		}
	case StateReadingFrequency:
		if p.appendHex(p.cmd.Frequency[:], b) {
			return p.resolve(KindSetFrequency)
		}
	case StateReadingAmplitude:
		if p.appendHex(p.cmd.Amplitude[:], b) {
			return p.resolve(KindSetAmplitude)
		}
	case StateReadingPhase:
		if p.appendHex(p.cmd.Phase[:], b) {
			return p.resolve(KindSetPhase)
		}
	}
	return
}

func (p *Parser) enter(state ParseState) {
	p.state, p.pos = state, 0
}

// appendHex stores a payload digit and reports whether dst is full.
func (p *Parser) appendHex(dst []byte, b byte) bool {
	return p.appendDigit(dst, b, IsHexDigit)
}

func (p *Parser) appendDigit(dst []byte, b byte, valid func(byte) bool) bool {
	if !valid(b) {
		p.Reset()
		return false
	}
	dst[p.pos] = b
	p.pos++
	return p.pos == len(dst)
}

func (p *Parser) resolve(kind Kind) (Command, bool) {
	p.cmd.Kind = kind
	cmd := p.cmd
	p.Reset()
	return cmd, true
}
