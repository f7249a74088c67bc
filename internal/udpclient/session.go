package udpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/amp-gateway/internal/protocol/powersoft"
)

const (
	// DefaultTimeout 单次请求默认超时
	DefaultTimeout = 5 * time.Second
	// DefaultPort 功放默认 UDP 端口
	DefaultPort = 1234

	readBufferSize = 65535 + powersoft.EnvelopeLen
)

var errCanceled = errors.New("request canceled")

// Config 会话配置
type Config struct {
	Host           string
	Port           int
	LocalAddr      string // 默认 0.0.0.0:0，端口由系统分配
	DefaultTimeout time.Duration
}

// Option 会话选项
type Option func(*Session)

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNotifier 设置状态通知
func WithNotifier(n StatusNotifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithObserver 设置指标回调
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithSendLimiter 设置发送限速
func WithSendLimiter(l *SendLimiter) Option {
	return func(s *Session) { s.limiter = l }
}

// Call 一次进行中的请求；Done 在应答、超时、中止或发送失败时关闭（仅一次）
type Call struct {
	Cmd    powersoft.Command
	Cookie uint16
	Reply  *powersoft.Message
	Error  error
	Done   chan struct{}

	start time.Time
	timer *time.Timer
}

// Result 阻塞等待请求完成
func (c *Call) Result() (*powersoft.Message, error) {
	<-c.Done
	return c.Reply, c.Error
}

func failedCall(cmd powersoft.Command, err error) *Call {
	c := &Call{Cmd: cmd, Error: err, Done: make(chan struct{}), start: time.Now()}
	close(c.Done)
	return c
}

// Session Powersoft UDP 传输会话
// 一个会话持有一个本地 UDP socket，按 cookie 关联请求与应答。
// 待应答表由 mu 保护：应答、超时、中止、发送失败四条路径都必须先在锁内
// 从表中摘除条目，摘除成功的一方才有权完成该请求。
type Session struct {
	cfg      Config
	logger   *zap.Logger
	notifier StatusNotifier
	observer Observer
	limiter  *SendLimiter

	mu        sync.Mutex
	conn      *net.UDPConn
	remote    *net.UDPAddr
	localPort uint16
	cookie    uint16
	pending   map[uint16]*Call
	readDone  chan struct{}
}

// New 创建会话（未打开）
func New(cfg Config, opts ...Option) *Session {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LocalAddr == "" {
		cfg.LocalAddr = "0.0.0.0:0"
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	s := &Session{
		cfg:      cfg,
		logger:   zap.NewNop(),
		notifier: nopNotifier{},
		observer: nopObserver{},
		pending:  make(map[uint16]*Call),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open 绑定本地临时端口并启动接收循环；已打开时先关闭旧 socket
func (s *Session) Open(ctx context.Context) error {
	if s.IsOpen() {
		_ = s.Close()
	}
	s.notifier.UpdateStatus(StatusConnecting, "")

	endpoint := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	remote, err := resolveUDP(ctx, endpoint)
	if err != nil {
		s.notifier.UpdateStatus(StatusConnectionFailure, err.Error())
		return fmt.Errorf("resolve %s: %w", endpoint, err)
	}

	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp4", s.cfg.LocalAddr)
	if err != nil {
		s.notifier.UpdateStatus(StatusConnectionFailure, err.Error())
		return fmt.Errorf("bind %s: %w", s.cfg.LocalAddr, err)
	}
	conn := pc.(*net.UDPConn)
	local := conn.LocalAddr().(*net.UDPAddr)

	done := make(chan struct{})
	s.mu.Lock()
	s.conn = conn
	s.remote = remote
	s.localPort = uint16(local.Port)
	s.readDone = done
	s.mu.Unlock()

	go s.readLoop(conn, done)

	s.logger.Info("udp socket bound",
		zap.Int("local_port", local.Port),
		zap.String("remote", remote.String()))
	s.notifier.UpdateStatus(StatusOK, "")
	return nil
}

// Close 关闭 socket，并以 ErrAborted 完成所有未完成请求；可重复调用
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	done := s.readDone
	pending := s.pending
	s.conn = nil
	s.remote = nil
	s.localPort = 0
	s.readDone = nil
	s.pending = make(map[uint16]*Call)
	s.observer.PendingChanged(0)
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	if done != nil {
		<-done
	}

	// 表已整体替换：此后到期的定时器在新表中找不到条目，不会重复完成
	for _, c := range pending {
		s.finish(c, nil, ErrAborted)
	}
	if len(pending) > 0 {
		s.logger.Info("udp session closed, pending requests aborted", zap.Int("aborted", len(pending)))
	}
	return err
}

// IsOpen 会话是否已打开
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// LocalPort 本地绑定端口（即帧中的应答端口），未打开时为 0
func (s *Session) LocalPort() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localPort
}

// RemoteAddr 功放地址，未打开时为 nil
func (s *Session) RemoteAddr() *net.UDPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

// Pending 当前未完成请求数
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// LimiterStats 发送限速统计
func (s *Session) LimiterStats() SendLimiterStats {
	return s.limiter.Stats()
}

// Send 发送命令并阻塞等待应答
// timeout<=0 使用默认超时；ctx 取消时请求立即退出并从待应答表摘除
func (s *Session) Send(ctx context.Context, cmd powersoft.Command, payload []byte, timeout time.Duration) (*powersoft.Message, error) {
	call := s.Go(ctx, cmd, payload, timeout)
	select {
	case <-call.Done:
	case <-ctx.Done():
		s.complete(call.Cookie, call, nil, fmt.Errorf("%w: %w", errCanceled, ctx.Err()))
		<-call.Done
	}
	return call.Reply, call.Error
}

// Go 异步发送命令，返回的 Call 在完成时关闭 Done
func (s *Session) Go(ctx context.Context, cmd powersoft.Command, payload []byte, timeout time.Duration) *Call {
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}
	if !s.IsOpen() {
		return failedCall(cmd, ErrNotOpen)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return failedCall(cmd, fmt.Errorf("%w: %w", errCanceled, err))
	}

	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return failedCall(cmd, ErrNotOpen)
	}
	s.cookie++
	cookie := s.cookie
	if _, busy := s.pending[cookie]; busy {
		s.mu.Unlock()
		s.logger.Warn("cookie wraparound hit a pending request", zap.Uint16("cookie", cookie))
		return failedCall(cmd, fmt.Errorf("%w: %d", ErrCookieInUse, cookie))
	}
	raw, err := powersoft.Encode(cmd, cookie, s.localPort, payload)
	if err != nil {
		s.mu.Unlock()
		return failedCall(cmd, err)
	}
	call := &Call{Cmd: cmd, Cookie: cookie, Done: make(chan struct{}), start: time.Now()}
	s.pending[cookie] = call
	call.timer = time.AfterFunc(timeout, func() {
		s.complete(cookie, call, nil, ErrTimeout)
	})
	conn, remote := s.conn, s.remote
	s.observer.PendingChanged(len(s.pending))
	s.mu.Unlock()

	if ce := s.logger.Check(zap.DebugLevel, "udp send"); ce != nil {
		ce.Write(zap.Stringer("cmd", cmd), zap.Uint16("cookie", cookie), zap.String("frame", powersoft.HexDump(raw)))
	}

	if _, err := conn.WriteToUDP(raw, remote); err != nil {
		s.complete(cookie, call, nil, fmt.Errorf("send %s: %w", cmd, err))
		return call
	}
	s.observer.FrameSent(cmd, len(raw))
	return call
}

// complete 从待应答表摘除指定请求并完成它；want 不在表中（已被其他路径完成）时为空操作
func (s *Session) complete(cookie uint16, want *Call, msg *powersoft.Message, err error) bool {
	s.mu.Lock()
	cur, ok := s.pending[cookie]
	if !ok || cur != want {
		s.mu.Unlock()
		return false
	}
	delete(s.pending, cookie)
	s.observer.PendingChanged(len(s.pending))
	s.mu.Unlock()

	s.finish(cur, msg, err)
	return true
}

func (s *Session) finish(c *Call, msg *powersoft.Message, err error) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.Reply, c.Error = msg, err
	close(c.Done)

	elapsed := time.Since(c.start)
	s.observer.RequestDone(c.Cmd, resultOf(err), elapsed)
	if err != nil && !errors.Is(err, ErrAborted) {
		s.logger.Debug("udp request failed",
			zap.Stringer("cmd", c.Cmd),
			zap.Uint16("cookie", c.Cookie),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	}
}

func (s *Session) readLoop(conn *net.UDPConn, done chan struct{}) {
	defer close(done)
	buf := make([]byte, readBufferSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("udp socket error", zap.Error(err))
			s.notifier.UpdateStatus(StatusConnectionFailure, err.Error())
			// 短暂错误等待后继续
			time.Sleep(50 * time.Millisecond)
			continue
		}
		s.handleDatagram(buf[:n], addr)
	}
}

// handleDatagram 解码一帧并按 cookie 分发；非法帧与未知 cookie 记录后丢弃
func (s *Session) handleDatagram(b []byte, from *net.UDPAddr) {
	s.observer.FrameReceived(len(b))
	if ce := s.logger.Check(zap.DebugLevel, "udp recv"); ce != nil {
		ce.Write(zap.Stringer("from", from), zap.String("frame", powersoft.HexDump(b)))
	}

	msg, err := powersoft.Decode(b)
	s.observer.Decoded(powersoft.DecodeReason(err))
	if err != nil {
		s.logger.Warn("received invalid message", zap.Error(err), zap.Int("len", len(b)))
		return
	}

	s.mu.Lock()
	call, ok := s.pending[msg.Cookie]
	s.mu.Unlock()
	if !ok || !s.complete(msg.Cookie, call, msg, nil) {
		s.observer.Unsolicited()
		s.logger.Debug("received unsolicited message",
			zap.Stringer("cmd", msg.Cmd),
			zap.Uint16("cookie", msg.Cookie))
	}
}

func resolveUDP(ctx context.Context, endpoint string) (*net.UDPAddr, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %q", portStr)
	}
	if ip := net.ParseIP(host); ip != nil {
		return &net.UDPAddr{IP: ip, Port: port}, nil
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no ipv4 address for %s", host)
	}
	return &net.UDPAddr{IP: ips[0], Port: port}, nil
}
