// Package simulator 提供一个符合协议的 Powersoft 功放模拟器（UDP），用于测试与本地联调
package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/amp-gateway/internal/protocol/powersoft"
)

// Faults 故障注入配置
type Faults struct {
	Drop        bool          // 不应答
	Delay       time.Duration // 应答前延迟
	CorruptCRC  bool          // 应答帧 CRC 错误
	WrongCookie bool          // 应答 cookie+1
	Duplicate   bool          // 同一应答发送两次
	FailOK      bool          // 应答 ok-flag=0
	MuteEcho    bool          // 静音应答回显错误的通道号
}

// Config 模拟器配置
type Config struct {
	Addr     string // 监听地址，默认 127.0.0.1:0
	Info     powersoft.Info
	Channels int
	Standby  bool
}

// Simulator 模拟功放
type Simulator struct {
	cfg    Config
	logger *zap.Logger

	conn *net.UDPConn
	wg   sync.WaitGroup

	mu      sync.Mutex
	standby bool
	mutes   map[uint8]bool
	faults  Faults

	received atomic.Int64
	answered atomic.Int64
}

// New 创建模拟器
func New(cfg Config, logger *zap.Logger) *Simulator {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 4
	}
	if cfg.Info == (powersoft.Info{}) {
		cfg.Info = powersoft.Info{Manufacturer: "Powersoft", Family: "X Series", Model: "X4", Serial: "SIM0001"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		cfg:     cfg,
		logger:  logger,
		standby: cfg.Standby,
		mutes:   make(map[uint8]bool),
	}
}

// Start 开始监听
func (s *Simulator) Start(ctx context.Context) error {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp4", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.conn = pc.(*net.UDPConn)
	s.logger.Info("amplifier simulator listening", zap.String("addr", s.conn.LocalAddr().String()))

	s.wg.Add(1)
	go s.serve()
	return nil
}

// Stop 停止并等待接收协程退出
func (s *Simulator) Stop() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.wg.Wait()
	s.conn = nil
	return err
}

// Addr 监听地址
func (s *Simulator) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Port 监听端口
func (s *Simulator) Port() int { return s.Addr().Port }

// SetFaults 设置故障注入
func (s *Simulator) SetFaults(f Faults) {
	s.mu.Lock()
	s.faults = f
	s.mu.Unlock()
}

// Standby 当前待机状态
func (s *Simulator) Standby() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.standby
}

// SetStandby 直接设置待机状态（模拟前面板操作）
func (s *Simulator) SetStandby(v bool) {
	s.mu.Lock()
	s.standby = v
	s.mu.Unlock()
}

// Muted 通道静音状态
func (s *Simulator) Muted(ch uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutes[ch]
}

// Received 收到的合法请求数
func (s *Simulator) Received() int64 { return s.received.Load() }

// Answered 已发送的应答数
func (s *Simulator) Answered() int64 { return s.answered.Load() }

func (s *Simulator) serve() {
	defer s.wg.Done()
	buf := make([]byte, powersoft.MaxPayloadLen+powersoft.EnvelopeLen)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("simulator read error", zap.Error(err))
			continue
		}
		req, err := powersoft.Decode(buf[:n])
		if err != nil {
			s.logger.Debug("simulator dropped invalid frame", zap.Error(err))
			continue
		}
		s.received.Add(1)
		s.reply(req, from)
	}
}

func (s *Simulator) reply(req *powersoft.Message, from *net.UDPAddr) {
	s.mu.Lock()
	f := s.faults
	data, ok := s.handle(req, f)
	s.mu.Unlock()
	if !ok || f.Drop {
		return
	}

	resp, _ := powersoft.ResponseCode(req.Cmd)
	cookie := req.Cookie
	if f.WrongCookie {
		cookie++
	}
	out, err := powersoft.Encode(resp, cookie, 0, data)
	if err != nil {
		return
	}
	if f.CorruptCRC {
		out[len(out)-4] ^= 0xFF
	}

	// 应答发往帧中携带的应答端口
	to := &net.UDPAddr{IP: from.IP, Port: int(req.AnswerPort)}
	if req.AnswerPort == 0 {
		to = from
	}
	conn := s.conn
	send := func() {
		if f.Delay > 0 {
			time.Sleep(f.Delay)
		}
		times := 1
		if f.Duplicate {
			times = 2
		}
		for i := 0; i < times; i++ {
			if _, err := conn.WriteToUDP(out, to); err != nil {
				return
			}
			s.answered.Add(1)
		}
	}
	if f.Delay > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			send()
		}()
		return
	}
	send()
}

// handle 处理请求并返回应答负载；调用方持有 mu
func (s *Simulator) handle(req *powersoft.Message, f Faults) ([]byte, bool) {
	okFlag := byte(powersoft.AnswerOK)
	if f.FailOK {
		okFlag = 0
	}
	switch req.Cmd {
	case powersoft.CmdPing:
		return nil, true
	case powersoft.CmdInfo:
		return powersoft.EncodeInfo(s.cfg.Info), true
	case powersoft.CmdReadGM:
		data := make([]byte, powersoft.ReadGMPayloadLen)
		data[0] = okFlag
		data[1] = byte(s.cfg.Channels)
		return data, true
	case powersoft.CmdStandby:
		if len(req.Data) < 1 {
			return nil, false
		}
		switch powersoft.StandbyOp(req.Data[0]) {
		case powersoft.StandbyRelease:
			s.standby = false
		case powersoft.StandbyEngage:
			s.standby = true
		}
		code := byte(powersoft.OnOffOperative)
		if s.standby {
			code = powersoft.OnOffStandby
		}
		return []byte{okFlag, code, 0, 0}, true
	case powersoft.CmdWriteOutMute:
		if len(req.Data) < 2 {
			return nil, false
		}
		ch, mute := req.Data[0], req.Data[1] != 0
		if int(ch) >= s.cfg.Channels {
			return []byte{0, ch, req.Data[1], 0}, true
		}
		s.mutes[ch] = mute
		if f.MuteEcho {
			ch++
		}
		return []byte{okFlag, ch, req.Data[1], 0}, true
	default:
		s.logger.Debug("simulator ignoring command", zap.Stringer("cmd", req.Cmd))
		return nil, false
	}
}
