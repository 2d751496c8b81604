// Package comm provides L0 command protocol support.
package comm

// L0 protocol is communicated between the operator (or a host program)
// and the DDS box over a byte stream (e.g. serial port).
//
// Commands are short ASCII sequences, one character per token, with no
// framing, checksum or flow control. Replies are text lines, each command
// finishes with a ">Done" line.
//
//   I<n>T                  test pattern on slot n
//   I<n>R<aa>              read register aa (terminated by any other byte)
//   I<n>R<aa>L<k>D<2k hex> write k bytes to register aa
//   I<n>F<8 hex>           set frequency tuning word of profile 0
//   I<n>A<4 hex>           set amplitude scale factor of profile 0
//   I<n>P<4 hex>           set phase offset (not supported by firmware)
//   X                      master reset
//   ?                      check present devices
//   *IDN?                  identify
//   /                      abort current command
//
// Slots are numbered from 1 on the wire; hex digits are lowercase.
//
// Producer: operator / host
// Consumer: DDS box
