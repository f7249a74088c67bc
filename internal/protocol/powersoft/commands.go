package powersoft

import "fmt"

// Command 协议命令码（1字节）
type Command uint8

// 请求命令码
const (
	CmdPing         Command = 0
	CmdReadGM       Command = 1
	CmdWriteOutMute Command = 3
	CmdInfo         Command = 11
	CmdStandby      Command = 14
)

// 应答命令码
// 注意：应答码与请求码之间没有统一的算术关系，只能按表对照
const (
	RespPing         Command = 255
	RespReadGM       Command = 254
	RespWriteOutMute Command = 252
	RespInfo         Command = 244
	RespStandby      Command = 241
)

// responseTable 请求码 -> 应答码
var responseTable = map[Command]Command{
	CmdPing:         RespPing,
	CmdReadGM:       RespReadGM,
	CmdWriteOutMute: RespWriteOutMute,
	CmdInfo:         RespInfo,
	CmdStandby:      RespStandby,
}

// ResponseCode 返回请求命令对应的应答命令码
// 未登记的命令返回 false，调用方不得自行推算
func ResponseCode(cmd Command) (Command, bool) {
	resp, ok := responseTable[cmd]
	return resp, ok
}

// IsResponseTo 判断 resp 是否为 cmd 的合法应答码
func IsResponseTo(cmd, resp Command) bool {
	want, ok := responseTable[cmd]
	return ok && want == resp
}

func (c Command) String() string {
	switch c {
	case CmdPing:
		return "PING"
	case CmdReadGM:
		return "READGM"
	case CmdWriteOutMute:
		return "WRITEOUTMUTE"
	case CmdInfo:
		return "INFO"
	case CmdStandby:
		return "STANDBY"
	case RespPing:
		return "PING_ANSWER"
	case RespReadGM:
		return "READGM_ANSWER"
	case RespWriteOutMute:
		return "WRITEOUTMUTE_ANSWER"
	case RespInfo:
		return "INFO_ANSWER"
	case RespStandby:
		return "STANDBY_ANSWER"
	default:
		return fmt.Sprintf("CMD_%d", uint8(c))
	}
}
