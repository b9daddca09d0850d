package protocol

import "fmt"

// maxRun is the longest run of non-zero bytes a single COBS code byte can
// describe. A code of 0xFF marks such a run with no implied zero after it.
const maxRun = 254

// COBSEncode applies Consistent Overhead Byte Stuffing to data.
//
// The output never contains 0x00. Empty input encodes to a single 0x01.
// The delimiter is not appended; Encode adds it.
func COBSEncode(data []byte) []byte {
	out := make([]byte, 1, len(data)+len(data)/maxRun+2) //nolint:mnd // worst-case overhead
	codeIdx := 0
	code := byte(1)

	for _, b := range data {
		if b == 0 {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
		}
	}
	out[codeIdx] = code

	return out
}

// COBSDecode reverses COBSEncode.
//
// data must not include the trailing 0x00 delimiter.
//
// Returns:
//   - []byte: The decoded bytes
//   - error: ErrInvalidEncoding on a zero code byte, ErrTruncated when a run
//     extends past the end of data
func COBSDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))

	for i := 0; i < len(data); {
		code := data[i]
		if code == 0 {
			return nil, fmt.Errorf("%w: zero code byte at offset %d", ErrInvalidEncoding, i)
		}
		i++

		n := int(code) - 1
		if i+n > len(data) {
			return nil, fmt.Errorf("%w: run of %d at offset %d exceeds %d bytes",
				ErrTruncated, n, i-1, len(data))
		}
		out = append(out, data[i:i+n]...)
		i += n

		if code != 0xFF && i < len(data) {
			out = append(out, 0)
		}
	}

	return out, nil
}
