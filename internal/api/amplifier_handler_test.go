package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/amp-gateway/internal/api/middleware"
	"github.com/taoyao-code/amp-gateway/internal/audit"
	"github.com/taoyao-code/amp-gateway/internal/monitor"
	"github.com/taoyao-code/amp-gateway/internal/protocol/powersoft"
	"github.com/taoyao-code/amp-gateway/internal/statestore"
)

type fakeAmp struct {
	power     string
	connected bool
	err       error
	mutes     map[int]bool
}

func newFakeAmp() *fakeAmp {
	return &fakeAmp{power: "Online", connected: true, mutes: map[int]bool{}}
}

func (f *fakeAmp) Snapshot() statestore.Snapshot {
	conn := statestore.Disconnected
	if f.connected {
		conn = statestore.Connected
	}
	return statestore.Snapshot{ID: "amp-1", ConnectionStatus: conn, PowerStatus: f.power}
}

func (f *fakeAmp) Info() (powersoft.Info, bool) {
	if !f.connected {
		return powersoft.Info{}, false
	}
	return powersoft.Info{Manufacturer: "Acme", Model: "ModelY"}, true
}

func (f *fakeAmp) Channels() []monitor.Channel {
	return []monitor.Channel{{ID: 0, Label: "Channel 1"}, {ID: 1, Label: "Channel 2"}}
}

func (f *fakeAmp) Ping(context.Context) error { return f.err }

func (f *fakeAmp) PowerOn(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.power = "Online"
	return nil
}

func (f *fakeAmp) PowerOff(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.power = "Standby"
	return nil
}

func (f *fakeAmp) PowerToggle(context.Context) (powersoft.PowerState, error) {
	if f.err != nil {
		return powersoft.PowerUnknown, f.err
	}
	if f.power == "Online" {
		f.power = "Standby"
		return powersoft.PowerStandby, nil
	}
	f.power = "Online"
	return powersoft.PowerOnline, nil
}

func (f *fakeAmp) SetMute(_ context.Context, ch int, mute bool) error {
	if ch > 1 {
		return fmt.Errorf("%w: %d", monitor.ErrBadChannel, ch)
	}
	if f.err != nil {
		return f.err
	}
	f.mutes[ch] = mute
	return nil
}

func (f *fakeAmp) ToggleMute(ctx context.Context, ch int, current bool) (bool, error) {
	if err := f.SetMute(ctx, ch, !current); err != nil {
		return current, err
	}
	return !current, nil
}

func (f *fakeAmp) PowerFeedback(state string) bool {
	if state == monitor.FeedbackPowerOn {
		return f.power == "Online"
	}
	return f.power == "Standby"
}

func (f *fakeAmp) ConnectionFeedback(state string) bool {
	if state == monitor.FeedbackConnected {
		return f.connected
	}
	return !f.connected
}

func newTestRouter(amp Amplifier, rec audit.Recorder, auth middleware.AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterAmplifierRoutes(r, NewAmplifierHandler(amp, rec, monitor.DefaultPresets(), zap.NewNop()), auth, zap.NewNop())
	return r
}

func do(r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestAmplifierRoutes(t *testing.T) {
	amp := newFakeAmp()
	rec := audit.NewMemoryRecorder(0)
	r := newTestRouter(amp, rec, middleware.AuthConfig{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
		check  func(t *testing.T, out map[string]any)
	}{
		{"状态", http.MethodGet, "/api/v1/amplifier", nil, http.StatusOK, func(t *testing.T, out map[string]any) {
			assert.Equal(t, "Connected", out["connection_status"])
		}},
		{"信息", http.MethodGet, "/api/v1/amplifier/info", nil, http.StatusOK, func(t *testing.T, out map[string]any) {
			assert.Equal(t, "Acme", out["manufacturer"])
		}},
		{"通道", http.MethodGet, "/api/v1/amplifier/channels", nil, http.StatusOK, func(t *testing.T, out map[string]any) {
			assert.Len(t, out["channels"], 2)
		}},
		{"ping", http.MethodPost, "/api/v1/amplifier/ping", nil, http.StatusOK, nil},
		{"关机", http.MethodPost, "/api/v1/amplifier/power/off", nil, http.StatusOK, func(t *testing.T, out map[string]any) {
			assert.Equal(t, "Standby", out["power_status"])
		}},
		{"待机反馈", http.MethodGet, "/api/v1/amplifier/feedbacks/power?state=standby", nil, http.StatusOK, func(t *testing.T, out map[string]any) {
			assert.Equal(t, true, out["active"])
			assert.NotNil(t, out["style"])
		}},
		{"切换电源", http.MethodPost, "/api/v1/amplifier/power/toggle", nil, http.StatusOK, func(t *testing.T, out map[string]any) {
			assert.Equal(t, "Online", out["power_status"])
		}},
		{"开机", http.MethodPost, "/api/v1/amplifier/power/on", nil, http.StatusOK, nil},
		{"缺少当前状态不支持切换静音", http.MethodPost, "/api/v1/amplifier/outputs/0/toggle", nil, http.StatusConflict, nil},
		{"muted为空不支持切换静音", http.MethodPost, "/api/v1/amplifier/outputs/0/toggle", map[string]any{}, http.StatusConflict, nil},
		{"静音", http.MethodPost, "/api/v1/amplifier/outputs/0/mute", map[string]bool{"mute": true}, http.StatusOK, func(t *testing.T, out map[string]any) {
			assert.Equal(t, true, out["muted"])
			assert.NotEmpty(t, out["request_id"])
		}},
		{"以调用方状态切换静音", http.MethodPost, "/api/v1/amplifier/outputs/1/toggle", map[string]bool{"muted": false}, http.StatusOK, func(t *testing.T, out map[string]any) {
			assert.Equal(t, true, out["muted"])
			assert.True(t, amp.mutes[1])
		}},
		{"切换静音", http.MethodPost, "/api/v1/amplifier/outputs/0/toggle", map[string]bool{"muted": true}, http.StatusOK, func(t *testing.T, out map[string]any) {
			assert.Equal(t, false, out["muted"])
			assert.False(t, amp.mutes[0])
		}},
		{"切换静音body无效", http.MethodPost, "/api/v1/amplifier/outputs/0/toggle", "muted", http.StatusBadRequest, nil},
		{"缺少mute字段", http.MethodPost, "/api/v1/amplifier/outputs/0/mute", map[string]any{}, http.StatusBadRequest, nil},
		{"通道非数字", http.MethodPost, "/api/v1/amplifier/outputs/x/mute", map[string]bool{"mute": true}, http.StatusBadRequest, nil},
		{"通道越界", http.MethodPost, "/api/v1/amplifier/outputs/7/mute", map[string]bool{"mute": true}, http.StatusBadRequest, nil},
		{"连接反馈", http.MethodGet, "/api/v1/amplifier/feedbacks/connection", nil, http.StatusOK, func(t *testing.T, out map[string]any) {
			assert.Equal(t, true, out["active"])
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := do(r, tt.method, tt.path, tt.body)
			require.Equal(t, tt.code, resp.Code, resp.Body.String())
			if tt.check != nil {
				tt.check(t, out)
			}
		})
	}

	resp, out := do(r, http.MethodGet, "/api/v1/amplifier/actions?limit=3", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	actions := out["actions"].([]any)
	require.Len(t, actions, 3)
	assert.Equal(t, monitor.ActionMute, actions[0].(map[string]any)["action"])
	assert.Equal(t, false, actions[0].(map[string]any)["success"])
	assert.Equal(t, monitor.ActionToggleMute, actions[1].(map[string]any)["action"])
	assert.Equal(t, monitor.ActionToggleMute, actions[2].(map[string]any)["action"])
}

func TestAmplifierRoutesErrors(t *testing.T) {
	amp := newFakeAmp()
	amp.connected = false
	amp.err = monitor.ErrNotConnected
	r := newTestRouter(amp, nil, middleware.AuthConfig{})

	resp, _ := do(r, http.MethodPost, "/api/v1/amplifier/power/on", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	resp, _ = do(r, http.MethodGet, "/api/v1/amplifier/info", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp, _ = do(r, http.MethodGet, "/api/v1/amplifier/actions", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	amp.err = fmt.Errorf("power_on: %w", monitor.ErrCommandFailed)
	resp, out := do(r, http.MethodPost, "/api/v1/amplifier/ping", nil)
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Equal(t, "ping failed", out["error"])
}

func TestAmplifierRoutesAuth(t *testing.T) {
	r := newTestRouter(newFakeAmp(), nil, middleware.AuthConfig{Enabled: true, APIKeys: []string{"sk_test_123456"}})

	resp, _ := do(r, http.MethodGet, "/api/v1/amplifier", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/amplifier", nil)
	req.Header.Set("X-API-Key", "sk_test_123456")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
