package location

import (
	"waygroup/internal/config"
	"waygroup/internal/models"
)

// SampleFilter decides whether a raw sensor reading is trustworthy enough to
// act on. It is a pure function of the sample: rejected samples are dropped
// with no side effect.
type SampleFilter struct {
	maxAccuracy float64
	minSpeed    float64
}

func NewSampleFilter(cfg config.FilterConfig) *SampleFilter {
	return &SampleFilter{
		maxAccuracy: cfg.MaxAccuracy,
		minSpeed:    cfg.MinSpeed,
	}
}

// Accept passes a sample iff its accuracy is unknown or within the threshold,
// and its speed is unknown or above the minimum. Unknown-speed samples pass so
// stationary starts are not permanently blocked.
func (f *SampleFilter) Accept(sample models.RawPositionSample) bool {
	if sample.Accuracy != nil && *sample.Accuracy > f.maxAccuracy {
		return false
	}
	if sample.Speed != nil && *sample.Speed <= f.minSpeed {
		return false
	}
	return true
}
