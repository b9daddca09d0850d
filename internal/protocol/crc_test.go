package protocol

import "testing"

func TestCRC16(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{name: "empty", data: nil, want: 0xFFFF},
		{name: "check string", data: []byte("123456789"), want: 0x29B1},
		{name: "single zero", data: []byte{0x00}, want: 0xE1F0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRC16(tt.data); got != tt.want {
				t.Errorf("CRC16() = 0x%04X, want 0x%04X", got, tt.want)
			}
		})
	}
}

func TestCRC16_DetectsSingleBitFlips(t *testing.T) {
	data := []byte{0x01, 0x05, 0x80, 0x03, 0xAA, 0x00, 0x55}
	base := CRC16(data)

	for i := range data {
		for bit := range 8 {
			flipped := append([]byte(nil), data...)
			flipped[i] ^= 1 << bit
			if CRC16(flipped) == base {
				t.Errorf("flip byte %d bit %d not detected", i, bit)
			}
		}
	}
}
