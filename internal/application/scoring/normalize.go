package scoring

import (
	"math"

	"github.com/ipbench/ipsignal/internal/config"
)

// likertMax is the top of the 1-5 enrichment scale.
const likertMax = 5.0

// normalize maps a raw signal value into [0,1] under the configured policy.
// Values beyond the cap saturate at 1; negative values clamp to 0 so a bad
// upstream value can never produce a negative contribution.
func normalize(cfg config.NormalizerConfig, value float64) float64 {
	if value <= 0 {
		return 0
	}

	var v float64
	switch cfg.Type {
	case "linear":
		v = value / cfg.Max
	case "sqrt":
		v = math.Sqrt(value) / math.Sqrt(cfg.Max)
	case "pow":
		v = math.Pow(value/cfg.Max, cfg.Exp)
	case "likert":
		v = value / likertMax
	default:
		return 0
	}

	if v > 1 {
		return 1
	}
	return v
}

// yearMultiplier scales a profile score by remaining patent term, favouring
// patents with enforcement runway. 15+ years yields the full score; an
// expired patent keeps a 0.3 floor so strong evidence is dampened, not
// erased.
func yearMultiplier(years float64) float64 {
	if years < 0 {
		years = 0
	}
	if years > 15 {
		years = 15
	}
	return 0.3 + 0.7*math.Pow(years/15, 0.8)
}
