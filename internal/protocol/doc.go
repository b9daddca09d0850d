// Package protocol implements the wire codec shared by every board on the
// lab-automation bus.
//
// # Frame Layout
//
// A frame is a small addressed message. Before framing it is laid out as:
//
//	Byte 0:     Protocol version (always 1)
//	Byte 1:     Destination or source address
//	Byte 2:     Message type (opcode)
//	Byte 3:     Payload length N (0-250)
//	Byte 4..:   Payload (N bytes)
//	Byte 4+N:   CRC-16 low byte
//	Byte 5+N:   CRC-16 high byte
//
// The CRC is CRC-16/CCITT-FALSE over bytes 0..3+N. The whole buffer is then
// COBS-encoded and terminated with a single 0x00 delimiter, so a receiver can
// resynchronise on any zero byte.
//
// # Errors
//
// Every decode failure wraps one of the package sentinel errors and can be
// classified with errors.Is:
//
//	frame, err := protocol.Decode(packet)
//	if errors.Is(err, protocol.ErrCRCMismatch) {
//	    // corrupted on the wire
//	}
//
// The package is pure: no I/O, no goroutines, no shared state.
package protocol
