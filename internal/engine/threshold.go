package engine

import (
	"fmt"

	"github.com/shuweilin/twsignal/internal/domain"
)

// ThresholdConfig scales a volatility estimate into an asymmetric reaction
// threshold. All values are percentage points. A fixed threshold would
// misread moves in calm and stormy regimes alike; scaling by recent
// dispersion keeps "significant" regime-appropriate, and the clamp stops the
// threshold collapsing toward zero in quiet markets or running away in a
// crisis.
type ThresholdConfig struct {
	UpMultiplier   float64
	DownMultiplier float64
	Floor          float64
	Ceiling        float64
}

// Validate checks the config for degenerate values.
func (c ThresholdConfig) Validate() error {
	if c.UpMultiplier <= 0 || c.DownMultiplier <= 0 {
		return fmt.Errorf("engine: threshold multipliers must be positive (up=%.2f down=%.2f)",
			c.UpMultiplier, c.DownMultiplier)
	}
	if c.Floor < 0 {
		return fmt.Errorf("engine: threshold floor must be >= 0, got %.2f", c.Floor)
	}
	if c.Ceiling < c.Floor {
		return fmt.Errorf("engine: threshold ceiling %.2f below floor %.2f", c.Ceiling, c.Floor)
	}
	return nil
}

// Rule converts a volatility estimate into a ThresholdRule:
// up = clamp(vol × up multiplier, floor, ceiling), and symmetrically for
// down. Output is monotonic in the input volatility between the clamps.
func (c ThresholdConfig) Rule(vol domain.VolatilityEstimate) domain.ThresholdRule {
	return domain.ThresholdRule{
		Up:        clamp(vol.Value*c.UpMultiplier, c.Floor, c.Ceiling),
		Down:      clamp(vol.Value*c.DownMultiplier, c.Floor, c.Ceiling),
		BasisVol:  vol.Value,
		BasisDate: vol.AsOf,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
