// Package monitor 功放连接生命周期：连接、状态轮询、断线重连与控制动作
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/amp-gateway/internal/amplifier"
	"github.com/taoyao-code/amp-gateway/internal/config"
	"github.com/taoyao-code/amp-gateway/internal/metrics"
	"github.com/taoyao-code/amp-gateway/internal/protocol/powersoft"
	"github.com/taoyao-code/amp-gateway/internal/statestore"
	"github.com/taoyao-code/amp-gateway/internal/udpclient"
)

var (
	// ErrNotConnected 功放未连接
	ErrNotConnected = errors.New("amplifier not connected")
	// ErrCommandFailed 功放拒绝或未应答
	ErrCommandFailed = errors.New("amplifier command failed")
	// ErrBadChannel 通道号越界
	ErrBadChannel = errors.New("invalid channel")
)

const (
	defaultChannels       = 4
	defaultReconnectDelay = 10 * time.Second

	unknownValue = "Unknown"
)

// Channel 通道选项
type Channel struct {
	ID    int    `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Option 控制器选项
type Option func(*Controller)

// WithNotifier 宿主状态通知
func WithNotifier(n udpclient.StatusNotifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithMetrics 指标
func WithMetrics(m *metrics.AppMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithStore 状态发布
func WithStore(s statestore.Store) Option {
	return func(c *Controller) {
		if s != nil {
			c.store = s
		}
	}
}

// Controller 单台功放的连接与控制
type Controller struct {
	logger   *zap.Logger
	notifier udpclient.StatusNotifier
	metrics  *metrics.AppMetrics
	store    statestore.Store
	limiter  *udpclient.SendLimiter
	breaker  *LinkBreaker

	// lifecycle 串行化 connect/disconnect/Stop
	lifecycle sync.Mutex

	mu        sync.Mutex
	cfg       config.AmplifierConfig
	sess      *udpclient.Session
	client    *amplifier.Client
	snap      statestore.Snapshot
	status    udpclient.Status
	runCtx    context.Context
	runCancel context.CancelFunc
	pollStop  context.CancelFunc
	pollDone  chan struct{}
	reconnect *time.Timer
}

// New 创建控制器（未启动）
func New(cfg config.AmplifierConfig, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		logger:   logger.With(zap.String("amp", cfg.ID)),
		notifier: udpclient.StatusFunc(func(udpclient.Status, string) {}),
		store:    statestore.NewMemoryStore(),
		limiter:  udpclient.NewSendLimiter(cfg.SendRate, cfg.SendBurst),
		breaker:  NewLinkBreaker(cfg.FailureThreshold),
		cfg:      cfg,
		snap: statestore.Snapshot{
			ID:               cfg.ID,
			ConnectionStatus: statestore.Disconnected,
			PowerStatus:      unknownValue,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start 校验配置并发起连接；连接失败时按重连间隔重试，仅配置错误返回 error
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.runCtx, c.runCancel = context.WithCancel(context.WithoutCancel(ctx))
	cfg := c.cfg
	c.mu.Unlock()

	c.publish()
	if err := cfg.Validate(); err != nil {
		c.badConfig(err)
		return err
	}
	_ = c.connect()
	return nil
}

// Stop 停止轮询与重连并关闭会话
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.runCancel != nil {
		c.runCancel()
	}
	c.mu.Unlock()

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	return c.disconnectLocked()
}

// Reconfigure 更新配置；host 或 port 变化时重连
func (c *Controller) Reconfigure(cfg config.AmplifierConfig) error {
	c.mu.Lock()
	old := c.cfg
	c.cfg = cfg
	c.mu.Unlock()

	if cfg.Host == old.Host && cfg.Port == old.Port {
		return nil
	}
	c.logger.Info("amplifier endpoint changed",
		zap.String("from", old.Endpoint()),
		zap.String("to", cfg.Endpoint()))

	if err := cfg.Validate(); err != nil {
		c.lifecycle.Lock()
		_ = c.disconnectLocked()
		c.lifecycle.Unlock()
		c.badConfig(err)
		return err
	}
	return c.connect()
}

func (c *Controller) badConfig(err error) {
	detail := err.Error()
	if errors.Is(err, config.ErrNoHost) {
		detail = "No host specified"
	}
	c.logger.Warn("amplifier config invalid", zap.Error(err))
	c.UpdateStatus(udpclient.StatusBadConfig, detail)
}

// connect 关闭旧会话，打开新会话并启动轮询
func (c *Controller) connect() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	_ = c.disconnectLocked()

	c.mu.Lock()
	cfg := c.cfg
	runCtx := c.runCtx
	c.mu.Unlock()
	if runCtx == nil || runCtx.Err() != nil {
		return context.Canceled
	}

	sess := udpclient.New(udpclient.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		LocalAddr:      cfg.LocalAddr,
		DefaultTimeout: cfg.RequestTimeout,
	}, c.sessionOptions()...)

	if err := sess.Open(runCtx); err != nil {
		c.logger.Error("connection failed", zap.String("endpoint", cfg.Endpoint()), zap.Error(err))
		c.update(func(s *statestore.Snapshot) {
			s.ConnectionStatus = statestore.Disconnected
			s.LastError = err.Error()
		})
		c.scheduleReconnect()
		return err
	}
	c.logger.Info("connected", zap.String("endpoint", cfg.Endpoint()), zap.Uint16("local_port", sess.LocalPort()))

	client := amplifier.NewClient(sess, cfg.RequestTimeout, c.logger)
	pollCtx, stop := context.WithCancel(runCtx)
	done := make(chan struct{})

	c.mu.Lock()
	c.sess = sess
	c.client = client
	c.pollStop = stop
	c.pollDone = done
	c.mu.Unlock()

	c.breaker.Probe()
	c.update(func(s *statestore.Snapshot) {
		s.ConnectionStatus = statestore.Connected
		s.LastError = ""
	})
	if c.metrics != nil {
		c.metrics.SetLink(true)
	}

	go c.pollLoop(pollCtx, client, cfg.EffectivePollInterval(), done)
	return nil
}

func (c *Controller) sessionOptions() []udpclient.Option {
	opts := []udpclient.Option{
		udpclient.WithLogger(c.logger),
		udpclient.WithNotifier(c),
		udpclient.WithSendLimiter(c.limiter),
	}
	if c.metrics != nil {
		opts = append(opts, udpclient.WithObserver(c.metrics))
	}
	return opts
}

// disconnectLocked 调用方持有 lifecycle
func (c *Controller) disconnectLocked() error {
	c.mu.Lock()
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	stop, done, sess := c.pollStop, c.pollDone, c.sess
	c.pollStop, c.pollDone, c.sess, c.client = nil, nil, nil, nil
	c.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	var err error
	if sess != nil {
		err = sess.Close()
		c.update(func(s *statestore.Snapshot) { s.ConnectionStatus = statestore.Disconnected })
		if c.metrics != nil {
			c.metrics.SetLink(false)
		}
	}
	return err
}

// scheduleReconnect 同一时间只保留一个待执行的重连
func (c *Controller) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reconnect != nil || c.runCtx == nil || c.runCtx.Err() != nil {
		return
	}
	delay := c.cfg.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.reconnect != t {
			c.mu.Unlock()
			return
		}
		c.reconnect = nil
		c.mu.Unlock()
		c.logger.Info("attempting to reconnect")
		_ = c.connect()
	})
	c.reconnect = t
}

func (c *Controller) pollLoop(ctx context.Context, client *amplifier.Client, interval time.Duration, done chan struct{}) {
	defer close(done)

	c.fetchInfo(ctx, client)
	c.checkPower(ctx, client)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkPower(ctx, client)
		}
	}
}

func (c *Controller) fetchInfo(ctx context.Context, client *amplifier.Client) {
	if info, ok := client.GetInfo(ctx); ok {
		c.update(func(s *statestore.Snapshot) {
			s.Manufacturer = orUnknown(info.Manufacturer)
			s.Family = orUnknown(info.Family)
			s.Model = orUnknown(info.Model)
			s.Serial = orUnknown(info.Serial)
		})
		c.logger.Info(fmt.Sprintf("amplifier: %s %s %s (%s)", info.Manufacturer, info.Family, info.Model, info.Serial))
	} else if ctx.Err() == nil {
		c.logger.Warn("failed to get amplifier info")
	}
	if n, ok := client.GetChannelCount(ctx); ok && n > 0 {
		c.update(func(s *statestore.Snapshot) { s.ChannelCount = n })
	}
}

// checkPower 轮询待机状态；连续失败达到阈值时判定断线并重连
func (c *Controller) checkPower(ctx context.Context, client *amplifier.Client) powersoft.PowerState {
	st, ok := client.GetStandbyStatus(ctx)
	if ctx.Err() != nil {
		return powersoft.PowerUnknown
	}
	if ok {
		state := st.State()
		c.update(func(s *statestore.Snapshot) { s.PowerStatus = state.String() })
		if c.metrics != nil {
			c.metrics.SetPower(state)
		}
		if c.breaker.Success() {
			c.logger.Info("amplifier link recovered")
			c.UpdateStatus(udpclient.StatusOK, "")
		}
		return state
	}

	c.update(func(s *statestore.Snapshot) { s.PowerStatus = unknownValue })
	if c.metrics != nil {
		c.metrics.SetPower(powersoft.PowerUnknown)
	}
	if c.breaker.Failure() {
		const detail = "amplifier not responding"
		c.logger.Warn("failed to check power status", zap.Int("threshold", c.breaker.threshold))
		c.update(func(s *statestore.Snapshot) { s.LastError = detail })
		if c.metrics != nil {
			c.metrics.SetLink(false)
		}
		c.UpdateStatus(udpclient.StatusConnectionFailure, detail)
		c.scheduleReconnect()
	}
	return powersoft.PowerUnknown
}

// UpdateStatus 实现 udpclient.StatusNotifier，转发给宿主
func (c *Controller) UpdateStatus(status udpclient.Status, detail string) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
	if status == udpclient.StatusConnectionFailure && detail != "" {
		c.update(func(s *statestore.Snapshot) { s.LastError = detail })
	}
	c.notifier.UpdateStatus(status, detail)
}

// Status 最近一次上报的状态
func (c *Controller) Status() udpclient.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) update(fn func(*statestore.Snapshot)) {
	c.mu.Lock()
	fn(&c.snap)
	c.snap.UpdatedAt = time.Now()
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) publish() {
	snap := c.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.store.Save(ctx, snap.ID, snap); err != nil {
		c.logger.Warn("publish state failed", zap.Error(err))
	}
}

// Snapshot 当前状态变量
func (c *Controller) Snapshot() statestore.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Info 已读取的功放信息
func (c *Controller) Info() (powersoft.Info, bool) {
	snap := c.Snapshot()
	if snap.Manufacturer == "" {
		return powersoft.Info{}, false
	}
	return powersoft.Info{
		Manufacturer: snap.Manufacturer,
		Family:       snap.Family,
		Model:        snap.Model,
		Serial:       snap.Serial,
	}, true
}

// Link 会话是否打开及未完成请求数
func (c *Controller) Link() (open bool, pending int) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return false, 0
	}
	return sess.IsOpen(), sess.Pending()
}

// BreakerStats 链路熔断统计
func (c *Controller) BreakerStats() LinkBreakerStats { return c.breaker.Stats() }

// Channels 通道选项；未探测到通道数时使用默认值
func (c *Controller) Channels() []Channel {
	c.mu.Lock()
	n := c.snap.ChannelCount
	if n <= 0 {
		n = c.cfg.DefaultChannels
	}
	c.mu.Unlock()
	if n <= 0 {
		n = defaultChannels
	}
	out := make([]Channel, n)
	for i := range out {
		out[i] = Channel{ID: i, Label: fmt.Sprintf("Channel %d", i+1)}
	}
	return out
}

func (c *Controller) currentClient() (*amplifier.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, ErrNotConnected
	}
	return c.client, nil
}

func (c *Controller) record(action string, ok bool) {
	if c.metrics != nil {
		c.metrics.Action(action, ok)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknownValue
	}
	return s
}
