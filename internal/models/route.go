package models

// TravelMode selects the routing profile requested from the directions provider.
type TravelMode string

const (
	TravelModeDriving TravelMode = "driving"
	TravelModeWalking TravelMode = "walking"
	TravelModeCycling TravelMode = "cycling"
)

func (m TravelMode) Valid() bool {
	switch m {
	case TravelModeDriving, TravelModeWalking, TravelModeCycling:
		return true
	}
	return false
}

// Maneuver describes the turn a step ends with. Location is the anchor
// coordinate at which the maneuver occurs, used to measure arrival.
type Maneuver struct {
	Type      string  `json:"type"`
	Modifier  string  `json:"modifier,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Step is one instruction-bearing segment of a precomputed route.
type Step struct {
	Instruction string   `json:"instruction"`
	Distance    float64  `json:"distance"`
	Duration    float64  `json:"duration"`
	Maneuver    Maneuver `json:"maneuver"`
}

// NavigationRoute is an immutable precomputed path. Re-routing produces a new
// instance; a route is never mutated after creation.
type NavigationRoute struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Geometry string  `json:"geometry"`
	Steps    []Step  `json:"steps"`
}

// NavigationProgress is the state derived from a route and the live position.
// CurrentStepIndex never regresses within one route; the remaining totals are
// recomputed on every update rather than accumulated.
type NavigationProgress struct {
	CurrentStepIndex  int     `json:"currentStepIndex"`
	DistanceRemaining float64 `json:"distanceRemaining"`
	DurationRemaining float64 `json:"durationRemaining"`
	DistanceTraveled  float64 `json:"distanceTraveled"`
	FractionTraveled  float64 `json:"fractionTraveled"`
	CurrentStep       *Step   `json:"currentStep"`
	NextStep          *Step   `json:"nextStep"`
	UpcomingStep      *Step   `json:"upcomingStep"`
}
