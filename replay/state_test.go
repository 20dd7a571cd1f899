package replay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeedInterval(t *testing.T) {
	assert.Equal(t, 1000*time.Millisecond, Speed1x.Interval())
	assert.Equal(t, 500*time.Millisecond, Speed2x.Interval())
	assert.Equal(t, 250*time.Millisecond, Speed4x.Interval())
}

func TestParseSpeed(t *testing.T) {
	tests := map[string]Speed{"": Speed1x, "1": Speed1x, "2x": Speed2x, " 4X ": Speed4x}
	for in, want := range tests {
		got, err := ParseSpeed(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseSpeed("3x")
	assert.Error(t, err)
	_, err = ParseSpeed("fast")
	assert.Error(t, err)
}

func TestSpeedStep(t *testing.T) {
	assert.Equal(t, Speed2x, Speed1x.Faster())
	assert.Equal(t, Speed4x, Speed4x.Faster())
	assert.Equal(t, Speed1x, Speed1x.Slower())
	assert.Equal(t, Speed2x, Speed4x.Slower())
}

func TestSpeedJSON(t *testing.T) {
	var v struct {
		Speed Speed `json:"speed"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"speed": "4x"}`), &v))
	assert.Equal(t, Speed4x, v.Speed)
	require.NoError(t, json.Unmarshal([]byte(`{"speed": 2}`), &v))
	assert.Equal(t, Speed2x, v.Speed)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"speed": "2x"}`, string(b))
}

func TestStateString(t *testing.T) {
	b, err := json.Marshal(Finished)
	require.NoError(t, err)
	assert.Equal(t, `"finished"`, string(b))
	assert.Equal(t, "loading", Loading.String())
}
