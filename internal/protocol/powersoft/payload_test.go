package powersoft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func infoPayload(fields ...string) []byte {
	out := make([]byte, InfoPayloadLen)
	for i, f := range fields {
		copy(out[i*32:], f)
	}
	return out
}

func TestParseInfo(t *testing.T) {
	info, err := ParseInfo(infoPayload("Acme", "FamilyX", "ModelY", "SN123"))
	require.NoError(t, err)
	assert.Equal(t, &Info{Manufacturer: "Acme", Family: "FamilyX", Model: "ModelY", Serial: "SN123"}, info)
}

func TestParseInfo_FullWidthField(t *testing.T) {
	// 32 字节全部非零时截止于字段边界，不越界读取下一字段
	data := infoPayload("", "Family", "Model", "Serial")
	for i := 0; i < 32; i++ {
		data[i] = 'A'
	}
	info, err := ParseInfo(data)
	require.NoError(t, err)
	assert.Len(t, info.Manufacturer, 32)
	assert.Equal(t, "Family", info.Family)
}

func TestParseInfo_Short(t *testing.T) {
	_, err := ParseInfo(make([]byte, 127))
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestEncodeInfo_Truncates(t *testing.T) {
	long := "0123456789012345678901234567890123456789"
	info, err := ParseInfo(EncodeInfo(Info{Manufacturer: long, Serial: "S1"}))
	require.NoError(t, err)
	assert.Equal(t, long[:31], info.Manufacturer)
	assert.Equal(t, "", info.Family)
	assert.Equal(t, "S1", info.Serial)
}

func TestParseNullTerminated(t *testing.T) {
	b := []byte{'a', 'b', 0, 'c'}
	assert.Equal(t, "ab", ParseNullTerminated(b, 0, 4))
	assert.Equal(t, "c", ParseNullTerminated(b, 3, 32))
	assert.Equal(t, "", ParseNullTerminated(b, 2, 2))
	assert.Equal(t, "", ParseNullTerminated(b, 10, 2))
}

func TestParseChannelCount(t *testing.T) {
	data := make([]byte, ReadGMPayloadLen)
	data[0] = AnswerOK
	data[1] = 4
	n, err := ParseChannelCount(data)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	data[0] = 0
	_, err = ParseChannelCount(data)
	assert.ErrorIs(t, err, ErrBadPayload)

	_, err = ParseChannelCount(make([]byte, 51))
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestParseStandby(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		state PowerState
	}{
		{"工作", []byte{1, OnOffOperative, 0, 0}, PowerOnline},
		{"待机", []byte{1, OnOffStandby, 0, 0}, PowerStandby},
		{"未知码", []byte{1, 7, 0, 0}, PowerUnknown},
		{"answer_ok失败", []byte{0, OnOffOperative, 0, 0}, PowerUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseStandby(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.state, r.State())
		})
	}

	_, err := ParseStandby([]byte{1, 2})
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestStandbyRequest(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 0}, StandbyRequest(StandbyRead))
	assert.Equal(t, []byte{1, 0, 0, 0}, StandbyRequest(StandbyRelease))
	assert.Equal(t, []byte{2, 0, 0, 0}, StandbyRequest(StandbyEngage))
}

func TestMuteAck(t *testing.T) {
	assert.Equal(t, []byte{2, 1, 0, 0}, MuteRequest(2, true))
	assert.Equal(t, []byte{2, 0, 0, 0}, MuteRequest(2, false))

	ack, err := ParseMuteAck([]byte{1, 2, 1, 0})
	require.NoError(t, err)
	assert.True(t, ack.Muted)
	assert.True(t, ack.Matches(2, true))
	assert.False(t, ack.Matches(1, true))
	assert.False(t, ack.Matches(2, false))

	// 非 0/1 的静音回显视为不匹配
	ack, err = ParseMuteAck([]byte{1, 2, 5, 0})
	require.NoError(t, err)
	assert.False(t, ack.Matches(2, true))

	ack, err = ParseMuteAck([]byte{0, 2, 1, 0})
	require.NoError(t, err)
	assert.False(t, ack.Matches(2, true))

	_, err = ParseMuteAck([]byte{1, 2, 1})
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestPowerStateString(t *testing.T) {
	assert.Equal(t, "Online", PowerOnline.String())
	assert.Equal(t, "Standby", PowerStandby.String())
	assert.Equal(t, "Unknown", PowerUnknown.String())
}
