package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ipbench/ipsignal/internal/config"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.NormalizerConfig
		value float64
		want  float64
	}{
		{"linear midpoint", config.NormalizerConfig{Type: "linear", Max: 10}, 5, 0.5},
		{"linear saturates", config.NormalizerConfig{Type: "linear", Max: 10}, 25, 1},
		{"sqrt", config.NormalizerConfig{Type: "sqrt", Max: 50}, 25, math.Sqrt(25) / math.Sqrt(50)},
		{"sqrt saturates", config.NormalizerConfig{Type: "sqrt", Max: 50}, 60, 1},
		{"pow", config.NormalizerConfig{Type: "pow", Max: 15, Exp: 1.5}, 10, math.Pow(10.0/15.0, 1.5)},
		{"likert top", config.NormalizerConfig{Type: "likert"}, 5, 1},
		{"likert mid", config.NormalizerConfig{Type: "likert"}, 3, 0.6},
		{"zero", config.NormalizerConfig{Type: "sqrt", Max: 50}, 0, 0},
		{"negative clamps", config.NormalizerConfig{Type: "linear", Max: 10}, -3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, normalize(tt.cfg, tt.value), 1e-12)
		})
	}
}

func TestNormalizeMonotone(t *testing.T) {
	for _, cfg := range []config.NormalizerConfig{
		{Type: "linear", Max: 10},
		{Type: "sqrt", Max: 50},
		{Type: "pow", Max: 15, Exp: 1.5},
		{Type: "likert"},
	} {
		prev := -1.0
		for v := 0.0; v <= 20; v += 0.5 {
			got := normalize(cfg, v)
			assert.GreaterOrEqual(t, got, prev, "type %s value %f", cfg.Type, v)
			prev = got
		}
	}
}

func TestYearMultiplier(t *testing.T) {
	assert.InDelta(t, 0.3, yearMultiplier(0), 1e-12)
	assert.InDelta(t, 1.0, yearMultiplier(15), 1e-12)
	// Caps beyond the full term rather than exceeding 1.
	assert.InDelta(t, 1.0, yearMultiplier(19), 1e-12)
	assert.InDelta(t, 0.3+0.7*math.Pow(10.0/15.0, 0.8), yearMultiplier(10), 1e-12)
}
