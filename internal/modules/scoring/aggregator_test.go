package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		bound Bound
		want  float64
	}{
		{"midpoint", 0.25, Bound{Low: 0.10, High: 0.40}, 0.5},
		{"below low", 0.01, Bound{Low: 0.10, High: 0.40}, 0},
		{"above high", 0.90, Bound{Low: 0.10, High: 0.40}, 1},
		{"max only", 0.25, Bound{Max: 0.50}, 0.5},
		{"inverted", 10, Bound{Low: 1, High: 10, Invert: true}, 0},
		{"inverted worst", 1, Bound{Low: 1, High: 10, Invert: true}, 1},
		{"no bound range", 3, Bound{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Normalize(tt.value, tt.bound), 1e-12)
		})
	}
}

func TestAggregate(t *testing.T) {
	raw := map[string]float64{
		Volatility:    0.25,  // 0.5
		Concentration: 0.40,  // 1.0
		Liquidity:     10,    // 0.0
		Stress:        0.125, // 0.25
	}
	s := Aggregate(raw, DefaultBounds(), map[string]float64{Volatility: 2})

	require.Len(t, s.Components, 4)
	// (0.5*2 + 1 + 0 + 0.25) / 5
	assert.InDelta(t, 2.25/5, s.Overall, 1e-12)
	assert.False(t, s.Clipped)

	total := 0.0
	byName := map[string]Component{}
	for _, c := range s.Components {
		total += c.Contribution
		byName[c.Name] = c
	}
	assert.InDelta(t, 100, total, 1e-9)
	assert.InDelta(t, 100/2.25, byName[Volatility].Contribution, 1e-9)
	assert.Equal(t, 0.0, byName[Liquidity].Contribution)
	assert.Equal(t, 1.0, byName[Stress].Weight, "missing weight defaults to 1")
}

func TestAggregate_AllZero(t *testing.T) {
	s := Aggregate(map[string]float64{Volatility: 0.05, Concentration: 0.01}, DefaultBounds(), DefaultWeights())
	assert.Equal(t, 0.0, s.Overall)
	for _, c := range s.Components {
		assert.Equal(t, 0.0, c.Contribution)
	}
}

func TestAggregate_SkipsUnboundedMetric(t *testing.T) {
	s := Aggregate(map[string]float64{"mystery": 1, Volatility: 0.4}, DefaultBounds(), nil)
	require.Len(t, s.Components, 1)
	assert.Equal(t, 1.0, s.Overall)
	assert.Len(t, s.Diagnostics, 1)
}

func TestAggregate_ClipsOutOfRangeOverall(t *testing.T) {
	s := Aggregate(map[string]float64{Volatility: 0.4, Stress: 0.5}, DefaultBounds(), map[string]float64{Volatility: -1, Stress: 3})
	// weighted = -1 + 3 = 2 over weight sum 2 -> 1, in range
	assert.False(t, s.Clipped)

	s = Aggregate(map[string]float64{Volatility: 0.4, Stress: 0.0}, DefaultBounds(), map[string]float64{Volatility: 2, Stress: -1})
	// weighted = 2 over weight sum 1 -> 2, clipped
	assert.True(t, s.Clipped)
	assert.Equal(t, 1.0, s.Overall)
}

func TestRegimeRisk(t *testing.T) {
	assert.Equal(t, 0.0, RegimeRisk("Bull"))
	assert.Equal(t, 0.25, RegimeRisk("Neutral"))
	assert.Equal(t, 0.6, RegimeRisk("Cautious"))
	assert.Equal(t, 1.0, RegimeRisk("Crisis"))
	assert.Equal(t, 0.25, RegimeRisk("whatever"))
}
