package protocol

import "errors"

// Codec errors. Decode wraps these with detail; use errors.Is to test.
var (
	// ErrTooShort is returned when a decoded frame is shorter than the
	// fixed header plus CRC.
	ErrTooShort = errors.New("protocol: frame too short")

	// ErrUnsupportedVersion is returned when the version byte is not 1.
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")

	// ErrCRCMismatch is returned when the received CRC does not match the
	// CRC computed over the header and payload.
	ErrCRCMismatch = errors.New("protocol: crc mismatch")

	// ErrInvalidEncoding is returned when the COBS stream contains a zero
	// code byte.
	ErrInvalidEncoding = errors.New("protocol: invalid cobs encoding")

	// ErrTruncated is returned when a COBS run or the declared payload
	// length extends past the end of the buffer.
	ErrTruncated = errors.New("protocol: truncated frame")

	// ErrLengthMismatch is returned when bytes trail the CRC.
	ErrLengthMismatch = errors.New("protocol: length mismatch")

	// ErrPayloadTooLarge is returned when a payload exceeds MaxPayload.
	ErrPayloadTooLarge = errors.New("protocol: payload too large")
)
