package powersoft

import (
	"errors"
	"fmt"
)

var ErrBadPayload = errors.New("bad payload")

const (
	// InfoPayloadLen INFO 应答最小长度：4 个 32 字节字段
	InfoPayloadLen = 128
	infoFieldLen   = 32

	// ReadGMPayloadLen READGM 应答最小长度
	ReadGMPayloadLen = 52

	// 固定 4 字节请求/应答负载（STANDBY、WRITEOUTMUTE）
	shortPayloadLen = 4

	// AnswerOK 应答首字节 answer_ok
	AnswerOK = 1
)

// StandbyOp STANDBY 请求首字节 ON-OFF-READ
type StandbyOp byte

const (
	StandbyRead    StandbyOp = 0 // 仅读取
	StandbyRelease StandbyOp = 1 // 退出待机（工作）
	StandbyEngage  StandbyOp = 2 // 进入待机
)

// 应答中的 ON-OFF 码
const (
	OnOffStandby   = 1 // 待机（不工作）
	OnOffOperative = 2 // 工作
)

// PowerState 功放电源状态
type PowerState int

const (
	PowerUnknown PowerState = iota
	PowerOnline
	PowerStandby
)

func (s PowerState) String() string {
	switch s {
	case PowerOnline:
		return "Online"
	case PowerStandby:
		return "Standby"
	default:
		return "Unknown"
	}
}

// PowerStateFromCode ON-OFF 码 -> 电源状态，其他值为 Unknown
func PowerStateFromCode(code byte) PowerState {
	switch code {
	case OnOffOperative:
		return PowerOnline
	case OnOffStandby:
		return PowerStandby
	default:
		return PowerUnknown
	}
}

// Info 功放身份信息
type Info struct {
	Manufacturer string `json:"manufacturer" yaml:"manufacturer"`
	Family       string `json:"family" yaml:"family"`
	Model        string `json:"model" yaml:"model"`
	Serial       string `json:"serial" yaml:"serial"`
}

// ParseInfo 解析 INFO 应答：manufacturer/family/model/serial 各占 32 字节，以 \0 结尾
func ParseInfo(data []byte) (*Info, error) {
	if len(data) < InfoPayloadLen {
		return nil, fmt.Errorf("%w: info len=%d", ErrBadPayload, len(data))
	}
	return &Info{
		Manufacturer: ParseNullTerminated(data, 0*infoFieldLen, infoFieldLen),
		Family:       ParseNullTerminated(data, 1*infoFieldLen, infoFieldLen),
		Model:        ParseNullTerminated(data, 2*infoFieldLen, infoFieldLen),
		Serial:       ParseNullTerminated(data, 3*infoFieldLen, infoFieldLen),
	}, nil
}

// EncodeInfo 构造 INFO 应答负载（模拟器使用），超长字段截断为 31 字节
func EncodeInfo(info Info) []byte {
	out := make([]byte, InfoPayloadLen)
	for i, s := range []string{info.Manufacturer, info.Family, info.Model, info.Serial} {
		b := []byte(s)
		if len(b) > infoFieldLen-1 {
			b = b[:infoFieldLen-1]
		}
		copy(out[i*infoFieldLen:], b)
	}
	return out
}

// ParseNullTerminated 读取 [offset, offset+maxLen) 内以 \0 结尾的字符串
func ParseNullTerminated(b []byte, offset, maxLen int) string {
	if offset < 0 || offset >= len(b) {
		return ""
	}
	end := offset + maxLen
	if end > len(b) {
		end = len(b)
	}
	for i := offset; i < end; i++ {
		if b[i] == 0 {
			return string(b[offset:i])
		}
	}
	return string(b[offset:end])
}

// ParseChannelCount 解析 READGM 应答：data[0]=answer_ok，data[1]=通道数
func ParseChannelCount(data []byte) (int, error) {
	if len(data) < ReadGMPayloadLen {
		return 0, fmt.Errorf("%w: readgm len=%d", ErrBadPayload, len(data))
	}
	if data[0] != AnswerOK {
		return 0, fmt.Errorf("%w: readgm answer_ok=%d", ErrBadPayload, data[0])
	}
	return int(data[1]), nil
}

// StandbyRequest 构造 STANDBY 请求负载
func StandbyRequest(op StandbyOp) []byte {
	return []byte{byte(op), 0, 0, 0}
}

// StandbyReply STANDBY 应答
type StandbyReply struct {
	OK    bool
	OnOff byte
}

// State 按 ON-OFF 码换算电源状态
func (r StandbyReply) State() PowerState {
	if !r.OK {
		return PowerUnknown
	}
	return PowerStateFromCode(r.OnOff)
}

// ParseStandby 解析 STANDBY 应答：data[0]=answer_ok，data[1]=ON-OFF
func ParseStandby(data []byte) (StandbyReply, error) {
	if len(data) < shortPayloadLen {
		return StandbyReply{}, fmt.Errorf("%w: standby len=%d", ErrBadPayload, len(data))
	}
	return StandbyReply{OK: data[0] == AnswerOK, OnOff: data[1]}, nil
}

// MuteRequest 构造 WRITEOUTMUTE 请求负载：{channel, mute, 0, 0}
func MuteRequest(channel uint8, mute bool) []byte {
	return []byte{channel, boolByte(mute), 0, 0}
}

// MuteAck WRITEOUTMUTE 应答：{answer_ok, channel, mute, ...}
type MuteAck struct {
	OK      bool
	Channel uint8
	Muted   bool
	rawMute byte
}

// Matches 校验应答回显的通道与静音标志是否与请求一致
func (a MuteAck) Matches(channel uint8, mute bool) bool {
	return a.OK && a.Channel == channel && a.rawMute == boolByte(mute)
}

// ParseMuteAck 解析 WRITEOUTMUTE 应答
func ParseMuteAck(data []byte) (MuteAck, error) {
	if len(data) < shortPayloadLen {
		return MuteAck{}, fmt.Errorf("%w: mute ack len=%d", ErrBadPayload, len(data))
	}
	return MuteAck{
		OK:      data[0] == AnswerOK,
		Channel: data[1],
		Muted:   data[2] == 1,
		rawMute: data[2],
	}, nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
