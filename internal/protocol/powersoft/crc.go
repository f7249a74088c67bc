package powersoft

// crcPoly CRC-16 反射多项式（x16 + x15 + x2 + 1 的逆序表示）
const crcPoly = 0xA001

// CRC16 计算 Powersoft 协议校验值
// 算法：初值 0，逐字节异或到低位，LSB 优先移位，命中低位时异或 0xA001
// 校验范围：仅 payload，不包含帧头字段
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ crcPoly
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
