package navigation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"waygroup/internal/config"
	"waygroup/internal/geo"
	"waygroup/internal/models"
)

// Instruction is the banner/voice output derived from progress and position.
type Instruction struct {
	Primary *models.Step
	Preview *models.Step
	Text    string
}

// BuildInstruction chooses the step worth announcing. A depart/head/continue
// step that is not an explicit "straight" is not worth announcing on its own,
// so the next maneuver step is promoted as the primary instruction and the
// current one demoted.
func BuildInstruction(progress models.NavigationProgress, lat, lng float64) (Instruction, bool) {
	current := progress.CurrentStep
	if current == nil {
		return Instruction{}, false
	}

	lower := strings.ToLower(current.Instruction)
	isStraight := strings.Contains(lower, "straight") || strings.Contains(lower, "travel")
	isHeadContinue := strings.Contains(lower, "head") || strings.Contains(lower, "continue")
	isDepartArrive := current.Maneuver.Type == "depart" || current.Maneuver.Type == "arrive"
	isNonManeuver := (isDepartArrive || isHeadContinue) && !isStraight

	primary := current
	preview := progress.NextStep
	if isNonManeuver && progress.NextStep != nil {
		primary = progress.NextStep
		preview = progress.UpcomingStep
	}

	dist := geo.Distance(lat, lng, primary.Maneuver.Latitude, primary.Maneuver.Longitude)

	return Instruction{
		Primary: primary,
		Preview: preview,
		Text:    fmt.Sprintf("In %s, %s", formatDistance(dist), primary.Instruction),
	}, true
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

// Sink receives announcement text; speech on device, a log line here.
type Sink interface {
	Speak(text string)
}

// Announcer debounces instruction output: identical text is never re-spoken,
// and a new instruction is suppressed until a minimum quiet interval has
// passed since the last announcement. The policy is pure so it can be tested
// without a speech engine.
type Announcer struct {
	sink        Sink
	minInterval time.Duration
	now         func() time.Time

	mu     sync.Mutex
	last   string
	lastAt time.Time
	muted  bool
}

func NewAnnouncer(sink Sink, cfg config.NavigationConfig) *Announcer {
	return &Announcer{
		sink:        sink,
		minInterval: cfg.AnnounceInterval,
		now:         time.Now,
	}
}

func (a *Announcer) Announce(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.muted {
		return
	}

	if text == a.last {
		return
	}

	now := a.now()
	if !a.lastAt.IsZero() && now.Sub(a.lastAt) < a.minInterval {
		return
	}

	a.last = text
	a.lastAt = now
	a.sink.Speak(text)
}

func (a *Announcer) SetMuted(muted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.muted = muted
}

func (a *Announcer) ToggleMute() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.muted = !a.muted
	return a.muted
}

// LogSink announces instructions as log lines, the agent's stand-in for the
// on-device speech engine.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Speak(text string) {
	s.Logger.Info().Str("instruction", text).Msg("navigation instruction")
}
