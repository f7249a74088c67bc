package powersoft

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// 帧格式（多字节字段均为小端）：
// STX(1) + cmd(1) + cookie(2) + count(2) + answerPort(2) + data(count) + crc16(2) + ^cmd(1) + ETX(1)
const (
	STX = 0x02
	ETX = 0x03

	// EnvelopeLen 固定帧开销（不含 payload）
	EnvelopeLen = 12

	// MaxPayloadLen count 字段为 2 字节
	MaxPayloadLen = 0xFFFF

	headerLen = 8
)

var (
	ErrShort           = errors.New("short frame")
	ErrBadSTX          = errors.New("bad stx")
	ErrBadETX          = errors.New("bad etx")
	ErrBadLength       = errors.New("length mismatch")
	ErrBadNotCmd       = errors.New("not-cmd mismatch")
	ErrCRCMismatch     = errors.New("crc mismatch")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Message 解码后的协议消息
type Message struct {
	Cmd        Command
	Cookie     uint16
	AnswerPort uint16
	Data       []byte
}

// Encode 构造一帧下行数据
// 仅当 payload 超过 65535 字节时返回错误
func Encode(cmd Command, cookie, answerPort uint16, data []byte) ([]byte, error) {
	if len(data) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(data))
	}
	count := len(data)
	buf := make([]byte, EnvelopeLen+count)
	buf[0] = STX
	buf[1] = byte(cmd)
	binary.LittleEndian.PutUint16(buf[2:4], cookie)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(count))
	binary.LittleEndian.PutUint16(buf[6:8], answerPort)
	copy(buf[headerLen:], data)
	binary.LittleEndian.PutUint16(buf[headerLen+count:], CRC16(data))
	buf[headerLen+count+2] = notCmd(cmd)
	buf[headerLen+count+3] = ETX
	return buf, nil
}

// Decode 解析并校验一帧数据
// 校验顺序：最小长度 -> STX -> ETX -> 长度一致 -> ^cmd -> CRC
// 返回的错误仅用于诊断，调用方应记录后丢弃该报文
func Decode(b []byte) (*Message, error) {
	if len(b) < EnvelopeLen {
		return nil, ErrShort
	}
	if b[0] != STX {
		return nil, ErrBadSTX
	}
	if b[len(b)-1] != ETX {
		return nil, ErrBadETX
	}

	cmd := Command(b[1])
	cookie := binary.LittleEndian.Uint16(b[2:4])
	count := int(binary.LittleEndian.Uint16(b[4:6]))
	answerPort := binary.LittleEndian.Uint16(b[6:8])

	if len(b) != EnvelopeLen+count {
		return nil, ErrBadLength
	}
	if b[headerLen+count+2] != notCmd(cmd) {
		return nil, ErrBadNotCmd
	}

	data := b[headerLen : headerLen+count]
	if binary.LittleEndian.Uint16(b[headerLen+count:]) != CRC16(data) {
		return nil, ErrCRCMismatch
	}

	// 复制 payload，避免引用接收缓冲区
	out := make([]byte, count)
	copy(out, data)
	return &Message{Cmd: cmd, Cookie: cookie, AnswerPort: answerPort, Data: out}, nil
}

// DecodeReason 将解码错误映射为指标标签
func DecodeReason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrShort):
		return "short"
	case errors.Is(err, ErrBadSTX):
		return "bad_stx"
	case errors.Is(err, ErrBadETX):
		return "bad_etx"
	case errors.Is(err, ErrBadLength):
		return "bad_length"
	case errors.Is(err, ErrBadNotCmd):
		return "bad_not_cmd"
	case errors.Is(err, ErrCRCMismatch):
		return "crc"
	default:
		return "error"
	}
}

// HexDump 以 [0x02, 0x00, ...] 形式输出，用于调试日志
func HexDump(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b)*6 + 2)
	sb.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "0x%02X", v)
	}
	sb.WriteByte(']')
	return sb.String()
}

func notCmd(cmd Command) byte {
	return ^byte(cmd)
}
