package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		encoded int64
		decoded float64
	}{
		{"zero", 0, 0, 0},
		{"two digits", 1234.56, 123456, 1234.56},
		{"rounds down", 1.234, 123, 1.23},
		{"rounds up", 1.236, 124, 1.24},
		{"negative", -2.5, -250, -2.5},
		{"realistic", 1700000000.129, 170000000013, 1700000000.13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.encoded, Encode(tt.seconds))
			assert.Equal(t, tt.decoded, Decode(tt.encoded))
			assert.Equal(t, Round(tt.seconds), Decode(Encode(tt.seconds)))
		})
	}
}

func TestEncode_Monotonic(t *testing.T) {
	prev := Encode(1699999999.0)
	for x := 1699999999.0; x < 1700000001.0; x += 0.003 {
		cur := Encode(x)
		require.GreaterOrEqual(t, cur, prev, "encode must not decrease at %v", x)
		prev = cur
	}
}

func TestRound_Idempotent(t *testing.T) {
	for _, x := range []float64{0.005, 12.345, 1700000000.999, 42} {
		once := Round(x)
		assert.Equal(t, once, Round(once))
	}
}

func TestFromTime(t *testing.T) {
	ts := time.Unix(1700000000, 250*int64(time.Millisecond))
	assert.InDelta(t, 1700000000.25, FromTime(ts), 1e-6)
	assert.Equal(t, int64(170000000025), Encode(FromTime(ts)))
}

func TestNow_IsRounded(t *testing.T) {
	now := Now()
	assert.Equal(t, now, Round(now))
	assert.InDelta(t, FromTime(time.Now()), now, 1)
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var cfg struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"90s","b":1000000000}`), &cfg))
	assert.Equal(t, 90*time.Second, cfg.A.Duration)
	assert.Equal(t, time.Second, cfg.B.Duration)

	var d Duration
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	b, err := json.Marshal(Duration{Duration: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, `"1m0s"`, string(b))
}
