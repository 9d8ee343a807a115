package navigation

import (
	"math"
	"sync"

	"github.com/rs/zerolog"
	"waygroup/internal/config"
	"waygroup/internal/geo"
	"waygroup/internal/models"
)

// Engine advances NavigationProgress from an immutable route and the live
// position stream. The step index is monotonic: there is no mechanism to
// regress on GPS backtracking, and the remaining totals are recomputed from
// scratch on every accepted sample so they cannot drift.
type Engine struct {
	route            models.NavigationRoute
	arrivalThreshold float64
	logger           zerolog.Logger

	mu       sync.Mutex
	progress models.NavigationProgress
}

func NewEngine(route models.NavigationRoute, cfg config.NavigationConfig, logger zerolog.Logger) *Engine {
	e := &Engine{
		route:            route,
		arrivalThreshold: cfg.ArrivalThreshold,
		logger:           logger,
	}

	e.progress = models.NavigationProgress{
		CurrentStepIndex:  0,
		DistanceRemaining: route.Distance,
		DurationRemaining: route.Duration,
	}
	e.setStepRefsLocked()

	return e
}

// Advance processes one accepted position sample and returns the updated
// progress.
func (e *Engine) Advance(lat, lng float64) models.NavigationProgress {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := &e.progress
	if len(e.route.Steps) == 0 {
		return e.progress
	}

	anchor := e.route.Steps[p.CurrentStepIndex].Maneuver
	distToAnchor := geo.Distance(lat, lng, anchor.Latitude, anchor.Longitude)

	if distToAnchor < e.arrivalThreshold && p.CurrentStepIndex < len(e.route.Steps)-1 {
		completed := e.route.Steps[p.CurrentStepIndex]
		p.CurrentStepIndex++
		p.DistanceTraveled += completed.Distance
		if e.route.Distance > 0 {
			p.FractionTraveled = p.DistanceTraveled / e.route.Distance
		}

		anchor = e.route.Steps[p.CurrentStepIndex].Maneuver
		distToAnchor = geo.Distance(lat, lng, anchor.Latitude, anchor.Longitude)

		e.logger.Debug().
			Int("step_index", p.CurrentStepIndex).
			Float64("fraction_traveled", p.FractionTraveled).
			Msg("advanced to next step")
	}

	var remainingDistance, remainingDuration float64
	for _, step := range e.route.Steps[p.CurrentStepIndex:] {
		remainingDistance += step.Distance
		remainingDuration += step.Duration
	}

	p.DistanceRemaining = math.Max(0, remainingDistance-distToAnchor)
	p.DurationRemaining = math.Max(0, remainingDuration)
	e.setStepRefsLocked()

	return e.progress
}

// Progress returns a copy of the current progress.
func (e *Engine) Progress() models.NavigationProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// Route returns the route the engine was created with.
func (e *Engine) Route() models.NavigationRoute {
	return e.route
}

func (e *Engine) setStepRefsLocked() {
	e.progress.CurrentStep = e.stepAt(e.progress.CurrentStepIndex)
	e.progress.NextStep = e.stepAt(e.progress.CurrentStepIndex + 1)
	e.progress.UpcomingStep = e.stepAt(e.progress.CurrentStepIndex + 2)
}

// stepAt returns a copy of the step at the index, or nil past the end so
// rendering can degrade gracefully.
func (e *Engine) stepAt(index int) *models.Step {
	if index < 0 || index >= len(e.route.Steps) {
		return nil
	}
	step := e.route.Steps[index]
	return &step
}
