package protocol

// CRC-16/CCITT-FALSE parameters.
const (
	crcInit uint16 = 0xFFFF
	crcPoly uint16 = 0x1021
)

// CRC16 computes CRC-16/CCITT-FALSE over data.
//
// Init 0xFFFF, polynomial 0x1021, MSB-first, no reflection, no final XOR.
// The check value for "123456789" is 0x29B1.
func CRC16(data []byte) uint16 {
	crc := crcInit
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ crcPoly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
