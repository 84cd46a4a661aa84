package risk

import (
	"time"

	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/route"
	"github.com/cargowatch/cargowatch/internal/weather"
)

// AttachWindow is the tolerance around an advisory's start time within which
// it attaches to a timeline point.
const AttachWindow = 30 * time.Minute

// Correlate joins the timeline with weather samples and hazard advisories.
// Samples pair by index. An advisory attaches to every point whose estimated
// time falls within AttachWindow of the advisory's start, so one advisory
// may attach to several points and one point may collect several advisories.
// Attached advisories keep gateway order. The join is pure: inputs are never
// mutated and the result shares no slices with them.
func Correlate(timeline []route.TimelinePoint, samples []weather.Sample, warnings []hazard.Warning) []PointConditions {
	result := make([]PointConditions, len(timeline))

	for i, point := range timeline {
		pc := PointConditions{Point: point}

		if i < len(samples) {
			pc.Weather = samples[i]
		}

		for _, w := range warnings {
			if withinWindow(w.WindowStart, point.EstimatedTime) {
				pc.Warnings = append(pc.Warnings, w)
			}
		}

		result[i] = pc
	}

	return result
}

func withinWindow(warningStart, estimated time.Time) bool {
	delta := warningStart.Sub(estimated)
	if delta < 0 {
		delta = -delta
	}
	return delta <= AttachWindow
}
