package risk

import (
	"strings"

	"github.com/cargowatch/cargowatch/internal/hazard"
)

// Generated recommendation texts.
const (
	RecommendPostpone          = "Consider postponing the trip"
	RecommendFollowingDistance = "Increase following distance"
	RecommendVehicleCheck      = "Check vehicle technical condition"
	RecommendReduceSpeed       = "Reduce travel speed"
	RecommendHeadlights        = "Use headlights and increase attentiveness"
)

const postponeThreshold = 50.0

// Recommend generates driver recommendations from the scored factors. Rules
// are additive and independent; advisory-supplied recommendation text is
// always included verbatim. The result is deduplicated preserving first
// occurrence order.
func Recommend(factors []Factor, overallRisk float64, warnings []hazard.Warning) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(text string) {
		if text == "" {
			return
		}
		if _, ok := seen[text]; ok {
			return
		}
		seen[text] = struct{}{}
		out = append(out, text)
	}

	if overallRisk > postponeThreshold {
		add(RecommendPostpone)
		add(RecommendFollowingDistance)
	}

	for _, f := range factors {
		name := strings.ToLower(f.Name)
		switch {
		case strings.Contains(name, "temperature"):
			add(RecommendVehicleCheck)
		case strings.Contains(name, "wind"):
			add(RecommendReduceSpeed)
		case strings.Contains(name, "visibility"):
			add(RecommendHeadlights)
		}
	}

	for _, w := range warnings {
		add(w.Recommendation)
	}

	return out
}
