package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taoyao-code/amp-gateway/internal/protocol/powersoft"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 功放网关指标，同时实现 udpclient.Observer
type AppMetrics struct {
	FramesSent       prometheus.Counter
	FramesReceived   prometheus.Counter
	DecodeTotal      *prometheus.CounterVec   // labels: result=ok|short|bad_stx|...|crc
	UnsolicitedTotal prometheus.Counter       // 未匹配 cookie 的应答
	RequestTotal     *prometheus.CounterVec   // labels: cmd, result
	RequestDuration  *prometheus.HistogramVec // labels: cmd
	PendingRequests  prometheus.Gauge
	LinkUp           prometheus.Gauge       // 1=连接正常
	PowerState       prometheus.Gauge       // 0=unknown 1=online 2=standby
	ActionTotal      *prometheus.CounterVec // labels: action, result
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amp_frames_sent_total",
			Help: "Total UDP frames sent to the amplifier.",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amp_frames_received_total",
			Help: "Total UDP datagrams received.",
		}),
		DecodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amp_decode_total",
			Help: "Inbound frame decode results.",
		}, []string{"result"}),
		UnsolicitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amp_unsolicited_total",
			Help: "Valid frames with no pending request for their cookie.",
		}),
		RequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amp_request_total",
			Help: "Completed requests by command and result.",
		}, []string{"cmd", "result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amp_request_duration_seconds",
			Help:    "Request round trip time.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"cmd"}),
		PendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "amp_pending_requests",
			Help: "Requests waiting for a reply.",
		}),
		LinkUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "amp_link_up",
			Help: "1 when the amplifier link is healthy.",
		}),
		PowerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "amp_power_state",
			Help: "Last polled power state: 0 unknown, 1 online, 2 standby.",
		}),
		ActionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amp_action_total",
			Help: "Control actions by name and result.",
		}, []string{"action", "result"}),
	}
	reg.MustRegister(m.FramesSent, m.FramesReceived, m.DecodeTotal, m.UnsolicitedTotal,
		m.RequestTotal, m.RequestDuration, m.PendingRequests, m.LinkUp, m.PowerState, m.ActionTotal)
	return m
}

func (m *AppMetrics) FrameSent(cmd powersoft.Command, bytes int) { m.FramesSent.Inc() }

func (m *AppMetrics) FrameReceived(bytes int) { m.FramesReceived.Inc() }

func (m *AppMetrics) Decoded(result string) { m.DecodeTotal.WithLabelValues(result).Inc() }

func (m *AppMetrics) Unsolicited() { m.UnsolicitedTotal.Inc() }

func (m *AppMetrics) RequestDone(cmd powersoft.Command, result string, elapsed time.Duration) {
	m.RequestTotal.WithLabelValues(cmd.String(), result).Inc()
	m.RequestDuration.WithLabelValues(cmd.String()).Observe(elapsed.Seconds())
}

func (m *AppMetrics) PendingChanged(n int) { m.PendingRequests.Set(float64(n)) }

// SetLink 更新连接状态
func (m *AppMetrics) SetLink(up bool) {
	if up {
		m.LinkUp.Set(1)
		return
	}
	m.LinkUp.Set(0)
}

// SetPower 更新电源状态
func (m *AppMetrics) SetPower(s powersoft.PowerState) { m.PowerState.Set(float64(s)) }

// Action 记录控制动作结果
func (m *AppMetrics) Action(name string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.ActionTotal.WithLabelValues(name, result).Inc()
}
