package weather

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/cargowatch/cargowatch/internal/route"
)

// SyntheticProviderName identifies the fallback synthesizer.
const SyntheticProviderName = "synthetic"

// SyntheticProvider fabricates plausible weather data when the real gateway
// is unreachable. Every sample is flagged Synthetic so consumers can label
// the result, and values stay within mild, unremarkable ranges: the point of
// the fallback is to keep the pipeline producing output, not to invent
// hazards.
type SyntheticProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticProvider creates a fallback provider. A zero seed uses the
// current time.
func NewSyntheticProvider(seed int64) *SyntheticProvider {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SyntheticProvider{rng: rand.New(rand.NewSource(seed))}
}

// Name returns the provider name.
func (p *SyntheticProvider) Name() string {
	return SyntheticProviderName
}

// RouteForecast fabricates one sample per timeline point.
func (p *SyntheticProvider) RouteForecast(_ context.Context, points []route.TimelinePoint, _ time.Time) ([]Sample, error) {
	samples := make([]Sample, len(points))
	for i, point := range points {
		samples[i] = p.sample(point.Coordinate.Lat, point.Coordinate.Lon, point.EstimatedTime)
	}
	return samples, nil
}

// Current fabricates current conditions for a location. No provider risk
// opinion is attached; synthetic data is scored locally.
func (p *SyntheticProvider) Current(_ context.Context, lat, lon float64) (*CurrentConditions, error) {
	return &CurrentConditions{Sample: p.sample(lat, lon, time.Now())}, nil
}

func (p *SyntheticProvider) sample(lat, lon float64, at time.Time) Sample {
	p.mu.Lock()
	defer p.mu.Unlock()

	condition := syntheticConditions[p.rng.Intn(len(syntheticConditions))]

	return Sample{
		Timestamp:   at,
		Lat:         lat,
		Lon:         lon,
		Temperature: 5 + p.rng.Float64()*15,  // 5..20 °C
		Humidity:    40 + p.rng.Float64()*35, // 40..75 %
		WindSpeed:   1 + p.rng.Float64()*6,   // 1..7 m/s
		Visibility:  8000 + p.rng.Float64()*2000,
		Pressure:    1000 + p.rng.Float64()*25,
		Condition:   condition,
		Description: condition.Label() + " (estimated)",
		Synthetic:   true,
	}
}

// syntheticConditions are the only codes the synthesizer emits. All are
// benign; adverse codes would inject phantom risk factors.
var syntheticConditions = []Condition{
	ConditionClear,
	ConditionClouds,
}
