package contest

import (
	"math"
	"testing"
	"time"

	"github.com/programme-lv/ojcore/srvcerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactorAtThresholds(t *testing.T) {
	s, err := ParseScheduleYAML("0: 1.0\n24: 0.8\n72: 0.5\n")
	require.NoError(t, err)

	assert.Equal(t, 0.8, s.Factor(30*time.Hour))
	assert.Equal(t, 0.5, s.Factor(72*time.Hour))
	assert.Equal(t, 0.8, s.Factor(72*time.Hour-time.Second))
	assert.Equal(t, 1.0, s.Factor(0))
	assert.Equal(t, 0.5, s.Factor(100*time.Hour))
	assert.Equal(t, 1.0, s.Factor(-time.Hour))
}

func TestFactorBeforeFirstThreshold(t *testing.T) {
	s := Schedule{{AfterSec: 3600, Factor: 0.9}}
	assert.Equal(t, 1.0, s.Factor(59*time.Minute))
	assert.Equal(t, 0.9, s.Factor(time.Hour))
	assert.Equal(t, 1.0, Schedule(nil).Factor(time.Hour))
}

func TestFactorFarThresholdNeverReached(t *testing.T) {
	s := Schedule{{AfterSec: 0, Factor: 1}, {AfterSec: 1 << 62, Factor: 0.5}}
	require.NoError(t, s.Validate())
	assert.Equal(t, 1.0, s.Factor(100*time.Hour))
	assert.Equal(t, 1.0, s.Factor(time.Duration(math.MaxInt64)))
}

func TestParseScheduleSecondsKeys(t *testing.T) {
	s, err := ParseSchedule(map[string]any{
		"259200": "0.5",
		"86400":  0.8,
		"0":      1,
	})
	require.NoError(t, err)
	assert.Equal(t, Schedule{
		{AfterSec: 0, Factor: 1},
		{AfterSec: 86400, Factor: 0.8},
		{AfterSec: 259200, Factor: 0.5},
	}, s)
}

func TestParseScheduleRejects(t *testing.T) {
	cases := map[string]map[string]any{
		"non-numeric key":   {"soon": 0.5},
		"non-numeric value": {"10": "half"},
		"negative key":      {"-10": 0.5},
		"zero factor":       {"10": 0},
		"factor above one":  {"10": 1.5},
		"duplicate":         {"10": 0.5, "10.0": 0.4},
		"bad value type":    {"10": []int{1}},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSchedule(raw)
			require.Error(t, err)
			assert.True(t, srvcerror.IsValidation(err))
			assert.ErrorIs(t, err, ErrInvalidPenaltySchedule(""))
		})
	}
}

func TestParseScheduleYAMLRejects(t *testing.T) {
	for _, doc := range []string{"", "- 1\n- 2\n", "a: 0.5\n", "1: x\n", "1: [0.5]\n", "{"} {
		_, err := ParseScheduleYAML(doc)
		assert.Error(t, err, doc)
	}
}

func TestFormatYAMLRoundTrips(t *testing.T) {
	s, err := ParseScheduleYAML("72: 0.5\n24.5: 0.8\n")
	require.NoError(t, err)
	assert.Equal(t, "24.5: 0.8\n72: 0.5\n", s.FormatYAML())

	again, err := ParseScheduleYAML(s.FormatYAML())
	require.NoError(t, err)
	assert.Equal(t, s, again)
}
