package protocol

import (
	"encoding/binary"
	"fmt"
)

// Wire constants.
const (
	// Version is the only protocol version this codec speaks.
	Version byte = 1

	// MaxPayload is the largest payload a frame may carry.
	MaxPayload = 250

	// Delimiter terminates every encoded packet.
	Delimiter byte = 0x00

	// headerSize is version + address + type + length.
	headerSize = 4

	// crcSize is the trailing little-endian CRC-16.
	crcSize = 2

	// minFrameSize is a frame with an empty payload.
	minFrameSize = headerSize + crcSize
)

// Frame is a single addressed message on the bus.
//
// Frames are values; Payload must not be modified after construction.
// Use NewFrame to build outgoing frames so the payload is copied and
// its length checked.
type Frame struct {
	// Address is the destination (requests) or source (responses) board.
	Address uint8

	// Type is the message opcode.
	Type uint8

	// Payload holds 0 to MaxPayload bytes.
	Payload []byte
}

// NewFrame builds a Frame, copying payload.
//
// Parameters:
//   - addr: Board address
//   - msgType: Message opcode
//   - payload: Payload bytes (copied; may be nil)
//
// Returns:
//   - Frame: The constructed frame
//   - error: ErrPayloadTooLarge if payload exceeds MaxPayload
func NewFrame(addr, msgType uint8, payload []byte) (Frame, error) {
	if len(payload) > MaxPayload {
		return Frame{}, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayload)
	}
	p := make([]byte, len(payload))
	copy(p, payload)
	return Frame{Address: addr, Type: msgType, Payload: p}, nil
}

// String renders the frame for log output.
func (f Frame) String() string {
	return fmt.Sprintf("Frame{addr:0x%02X type:0x%02X len:%d payload:% X}",
		f.Address, f.Type, len(f.Payload), f.Payload)
}

// Encode serialises a frame to its on-wire form.
//
// The output is COBS(header + payload + CRC) followed by the 0x00 delimiter:
//
//	[1][addr][type][len][payload...][crc_lo][crc_hi]  -> COBS -> + 0x00
//
// Returns:
//   - []byte: Wire packet including the delimiter
//   - error: ErrPayloadTooLarge if the payload exceeds MaxPayload
func Encode(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(f.Payload), MaxPayload)
	}

	raw := make([]byte, headerSize, headerSize+len(f.Payload)+crcSize)
	raw[0] = Version
	raw[1] = f.Address
	raw[2] = f.Type
	raw[3] = byte(len(f.Payload))
	raw = append(raw, f.Payload...)
	raw = binary.LittleEndian.AppendUint16(raw, CRC16(raw))

	packet := COBSEncode(raw)
	return append(packet, Delimiter), nil
}

// Decode parses an on-wire packet back into a Frame.
//
// A single trailing 0x00 delimiter is stripped if present. Checks run in
// order: COBS validity, minimum size, version, declared length, trailing
// bytes, CRC.
//
// Returns:
//   - Frame: The decoded frame (payload is a fresh slice)
//   - error: A wrapped ErrInvalidEncoding, ErrTruncated, ErrTooShort,
//     ErrUnsupportedVersion, ErrLengthMismatch or ErrCRCMismatch
func Decode(packet []byte) (Frame, error) {
	if n := len(packet); n > 0 && packet[n-1] == Delimiter {
		packet = packet[:n-1]
	}

	raw, err := COBSDecode(packet)
	if err != nil {
		return Frame{}, err
	}

	if len(raw) < minFrameSize {
		return Frame{}, fmt.Errorf("%w: %d bytes (need at least %d)", ErrTooShort, len(raw), minFrameSize)
	}

	if raw[0] != Version {
		return Frame{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, raw[0])
	}

	n := int(raw[3])
	end := headerSize + n
	if end+crcSize > len(raw) {
		return Frame{}, fmt.Errorf("%w: declared payload %d bytes, have %d",
			ErrTruncated, n, len(raw)-minFrameSize)
	}
	if end+crcSize < len(raw) {
		return Frame{}, fmt.Errorf("%w: %d bytes after crc", ErrLengthMismatch, len(raw)-end-crcSize)
	}

	got := binary.LittleEndian.Uint16(raw[end:])
	want := CRC16(raw[:end])
	if got != want {
		return Frame{}, fmt.Errorf("%w: got 0x%04X, want 0x%04X", ErrCRCMismatch, got, want)
	}

	payload := make([]byte, n)
	copy(payload, raw[headerSize:end])

	return Frame{Address: raw[1], Type: raw[2], Payload: payload}, nil
}
