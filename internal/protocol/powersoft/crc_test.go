package powersoft

import "testing"

func TestCRC16(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name:     "标准校验向量 123456789",
			data:     []byte("123456789"),
			expected: 0xBB3D,
		},
		{
			name:     "空数据",
			data:     []byte{},
			expected: 0x0000,
		},
		{
			name:     "nil数据",
			data:     nil,
			expected: 0x0000,
		},
		{
			name:     "单字节0x01",
			data:     []byte{0x01},
			expected: 0xC0C1,
		},
		{
			name:     "STANDBY读取请求",
			data:     []byte{0x00, 0x00, 0x00, 0x00},
			expected: 0x0000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRC16(tt.data); got != tt.expected {
				t.Errorf("CRC16() = 0x%04X, expected 0x%04X", got, tt.expected)
			}
		})
	}
}

func TestCRC16_DetectsSingleBitFlip(t *testing.T) {
	data := []byte("Powersoft")
	base := CRC16(data)
	for i := range data {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte(nil), data...)
			flipped[i] ^= 1 << bit
			if CRC16(flipped) == base {
				t.Fatalf("bit flip at byte %d bit %d not detected", i, bit)
			}
		}
	}
}
