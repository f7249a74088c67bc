package app

import (
	"net"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	cfgpkg "github.com/taoyao-code/amp-gateway/internal/config"
	"github.com/taoyao-code/amp-gateway/internal/metrics"
	"github.com/taoyao-code/amp-gateway/internal/protocol/powersoft"
)

// NewMetrics 初始化注册表与功放指标
// amp_target_info 标识当前管理的功放；链路与电源状态在首次轮询前为 down/unknown
func NewMetrics(amp cfgpkg.AmplifierConfig) (*prometheus.Registry, *metrics.AppMetrics) {
	reg := metrics.NewRegistry()
	target := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "amp_target_info",
		Help: "Amplifier managed by this gateway.",
		ConstLabels: prometheus.Labels{
			"amp_id":   amp.ID,
			"endpoint": net.JoinHostPort(amp.Host, strconv.Itoa(amp.Port)),
		},
	})
	target.Set(1)
	reg.MustRegister(target)

	appm := metrics.NewAppMetrics(reg)
	appm.SetLink(false)
	appm.SetPower(powersoft.PowerUnknown)
	return reg, appm
}
