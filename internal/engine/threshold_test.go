package engine

import (
	"testing"
	"time"

	"github.com/shuweilin/twsignal/internal/domain"
)

func volEstimate(v float64) domain.VolatilityEstimate {
	return domain.VolatilityEstimate{
		Ticker: "QQQ",
		AsOf:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Window: 20,
		Value:  v,
	}
}

func TestThresholdStaysWithinBounds(t *testing.T) {
	cfg := ThresholdConfig{UpMultiplier: 1.25, DownMultiplier: 1.25, Floor: 0.7, Ceiling: 1.8}
	for _, v := range []float64{0, 0.1, 0.5, 1.0, 1.5, 3.0, 10.0} {
		rule := cfg.Rule(volEstimate(v))
		if rule.Up < cfg.Floor || rule.Up > cfg.Ceiling {
			t.Fatalf("vol %v: up threshold %v outside [%v, %v]", v, rule.Up, cfg.Floor, cfg.Ceiling)
		}
		if rule.Down < cfg.Floor || rule.Down > cfg.Ceiling {
			t.Fatalf("vol %v: down threshold %v outside [%v, %v]", v, rule.Down, cfg.Floor, cfg.Ceiling)
		}
	}
}

func TestThresholdMonotonicInVolatility(t *testing.T) {
	cfg := ThresholdConfig{UpMultiplier: 1.0, DownMultiplier: 1.0, Floor: 0.7, Ceiling: 1.8}
	prev := -1.0
	for _, v := range []float64{0.2, 0.6, 0.8, 1.0, 1.2, 1.6, 2.4} {
		rule := cfg.Rule(volEstimate(v))
		if rule.Up < prev {
			t.Fatalf("up threshold decreased: vol %v gave %v after %v", v, rule.Up, prev)
		}
		prev = rule.Up
	}
}

func TestThresholdAsymmetricMultipliers(t *testing.T) {
	cfg := ThresholdConfig{UpMultiplier: 1.5, DownMultiplier: 0.8, Floor: 0, Ceiling: 100}
	rule := cfg.Rule(volEstimate(1.0))
	if rule.Up != 1.5 || rule.Down != 0.8 {
		t.Fatalf("rule = (%v, %v), want (1.5, 0.8)", rule.Up, rule.Down)
	}
}

func TestThresholdUnclampedScenario(t *testing.T) {
	// Multiplier 1.0 with wide clamps: up threshold equals the volatility,
	// which for returns [+3, -1, +0.5] sits between 0.5 and 3.
	est, _ := NewVolatilityEstimator(3)
	s := seriesFromReturns(t, "QQQ", 3, -1, 0.5)
	vol, err := est.Estimate(s)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	cfg := ThresholdConfig{UpMultiplier: 1.0, DownMultiplier: 1.0, Floor: 0, Ceiling: 100}
	rule := cfg.Rule(vol)
	if rule.Up <= 0.5 || rule.Up >= 3 {
		t.Fatalf("up threshold %v, want between min and max absolute window return", rule.Up)
	}
}

func TestThresholdConfigValidate(t *testing.T) {
	bad := []ThresholdConfig{
		{UpMultiplier: 0, DownMultiplier: 1, Floor: 0, Ceiling: 1},
		{UpMultiplier: 1, DownMultiplier: 1, Floor: -0.1, Ceiling: 1},
		{UpMultiplier: 1, DownMultiplier: 1, Floor: 2, Ceiling: 1},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	good := ThresholdConfig{UpMultiplier: 1.25, DownMultiplier: 1.25, Floor: 0.7, Ceiling: 1.8}
	if err := good.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRuleClassify(t *testing.T) {
	rule := domain.ThresholdRule{Up: 1.0, Down: 0.8}
	cases := []struct {
		ret  float64
		want domain.Direction
	}{
		{1.5, domain.DirectionUp},
		{1.0, domain.DirectionUp},
		{0.99, domain.DirectionFlat},
		{0, domain.DirectionFlat},
		{-0.79, domain.DirectionFlat},
		{-0.8, domain.DirectionDown},
		{-4.2, domain.DirectionDown},
	}
	for _, c := range cases {
		if got := rule.Classify(c.ret); got != c.want {
			t.Fatalf("classify(%v) = %v, want %v", c.ret, got, c.want)
		}
	}
}
