package comm

import "sync/atomic"

const (
	slotEmpty int32 = iota
	slotReady
	slotBusy
)

// Mailbox hands a single Command from the receiver to the dispatcher.
// There must be one producer calling Post and one consumer calling
// Take and Release.
//
// The state word moves empty -> ready (Post) -> busy (Take) -> empty
// (Release). The command is written only while empty and read only while
// busy.
type Mailbox struct {
	state int32
	cmd   Command
}

// Accepting indicates the mailbox is empty and a new command can be parsed.
func (m *Mailbox) Accepting() bool {
	return atomic.LoadInt32(&m.state) == slotEmpty
}

// Pending indicates a command is posted or being executed.
func (m *Mailbox) Pending() bool {
	return !m.Accepting()
}

// Post stores a command. It fails if the previous command is not released.
func (m *Mailbox) Post(cmd Command) error {
	if !m.Accepting() {
		return ErrMailboxFull
	}
	m.cmd = cmd
	atomic.StoreInt32(&m.state, slotReady)
	return nil
}

// Take retrieves the posted command and marks it busy.
func (m *Mailbox) Take() (Command, bool) {
	if !atomic.CompareAndSwapInt32(&m.state, slotReady, slotBusy) {
		return Command{}, false
	}
	return m.cmd, true
}

// Release empties the mailbox after the taken command finishes.
func (m *Mailbox) Release() bool {
	return atomic.CompareAndSwapInt32(&m.state, slotBusy, slotEmpty)
}
