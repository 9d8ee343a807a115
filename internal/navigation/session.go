package navigation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"waygroup/internal/config"
	"waygroup/internal/location"
	"waygroup/internal/models"
)

var (
	ErrInvalidCoordinates = errors.New("coordinates must be finite numbers")
	ErrInvalidTravelMode  = errors.New("travel mode must be driving, walking or cycling")
	ErrPermissionDenied   = errors.New("location permission denied")
	ErrEmptyRoute         = errors.New("route has no steps")
	ErrAlreadyStarted     = errors.New("navigation already started")
	ErrStopped            = errors.New("navigation stopped during initialization")
)

type State int

const (
	StateIdle State = iota
	StateInitializing
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// RouteFetcher is the directions provider collaborator.
type RouteFetcher interface {
	FetchRoute(ctx context.Context, originLat, originLng, destLat, destLng float64, mode models.TravelMode) (*models.NavigationRoute, error)
}

// PermissionFunc checks the location permission grant; it returns
// ErrPermissionDenied (possibly wrapped) on denial.
type PermissionFunc func(ctx context.Context) error

// StartParams are the navigation entry parameters. All four coordinates are
// mandatory and validated before any network call.
type StartParams struct {
	OriginLat float64
	OriginLng float64
	DestLat   float64
	DestLng   float64
	Mode      models.TravelMode
}

func (p StartParams) validate() error {
	for _, v := range []float64{p.OriginLat, p.OriginLng, p.DestLat, p.DestLng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidCoordinates
		}
	}
	if !p.Mode.Valid() {
		return ErrInvalidTravelMode
	}
	return nil
}

// Session drives the navigation lifecycle from Idle through Initializing and
// Active to Stopped, with the failure paths returning to Idle. Failures
// surface once to the caller; no retry is automatic.
type Session struct {
	fetcher    RouteFetcher
	source     location.Source
	filter     *location.SampleFilter
	announcer  *Announcer
	permission PermissionFunc
	cfg        config.NavigationConfig
	logger     zerolog.Logger

	mu         sync.Mutex
	state      State
	engine     *Engine
	stopSource func()
	onProgress func(models.NavigationProgress)
}

func NewSession(
	fetcher RouteFetcher,
	source location.Source,
	filter *location.SampleFilter,
	announcer *Announcer,
	permission PermissionFunc,
	cfg config.NavigationConfig,
	logger zerolog.Logger,
) *Session {
	return &Session{
		fetcher:    fetcher,
		source:     source,
		filter:     filter,
		announcer:  announcer,
		permission: permission,
		cfg:        cfg,
		logger:     logger,
		state:      StateIdle,
	}
}

// OnProgress registers the single progress observer. Must be called before
// Start.
func (s *Session) OnProgress(fn func(models.NavigationProgress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onProgress = fn
}

// Start validates the parameters, acquires the permission grant, fetches the
// route and begins consuming the position stream.
func (s *Session) Start(ctx context.Context, params StartParams) error {
	if err := params.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateInitializing
	s.mu.Unlock()

	if err := s.permission(ctx); err != nil {
		s.toIdle()
		return fmt.Errorf("location permission is required for navigation: %w", err)
	}

	route, err := s.fetcher.FetchRoute(ctx, params.OriginLat, params.OriginLng, params.DestLat, params.DestLng, params.Mode)
	if err != nil {
		s.toIdle()
		return fmt.Errorf("could not fetch route: %w", err)
	}

	if route == nil || len(route.Steps) == 0 {
		s.toIdle()
		return ErrEmptyRoute
	}

	engine := NewEngine(*route, s.cfg, s.logger)

	stop, err := s.source.Subscribe(s.handleSample)
	if err != nil {
		s.toIdle()
		return fmt.Errorf("could not start position stream: %w", err)
	}

	s.mu.Lock()
	// Stop may have been called while the route was being fetched; a stopped
	// session must not be resurrected.
	if s.state != StateInitializing {
		s.mu.Unlock()
		stop()
		return ErrStopped
	}
	s.engine = engine
	s.stopSource = stop
	s.state = StateActive
	s.mu.Unlock()

	s.logger.Info().
		Float64("distance", route.Distance).
		Float64("duration", route.Duration).
		Int("steps", len(route.Steps)).
		Msg("Navigation started")

	return nil
}

// Stop cancels navigation: the position subscription, the engine state and the
// active flag are torn down under one lock so no partial cleanup can leak
// stale updates.
func (s *Session) Stop() {
	s.mu.Lock()
	stop := s.stopSource
	s.stopSource = nil
	s.engine = nil
	s.state = StateStopped
	s.mu.Unlock()

	if stop != nil {
		stop()
	}

	s.logger.Info().Msg("Navigation stopped")
}

// Reset returns a stopped session to idle so a new Start can begin.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		s.state = StateIdle
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns the current progress, if navigation is active.
func (s *Session) Progress() (models.NavigationProgress, bool) {
	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()

	if engine == nil {
		return models.NavigationProgress{}, false
	}
	return engine.Progress(), true
}

func (s *Session) handleSample(sample models.RawPositionSample) {
	if !s.filter.Accept(sample) {
		return
	}

	s.mu.Lock()
	engine := s.engine
	active := s.state == StateActive
	onProgress := s.onProgress
	s.mu.Unlock()

	if !active || engine == nil {
		return
	}

	progress := engine.Advance(sample.Latitude, sample.Longitude)

	if instruction, ok := BuildInstruction(progress, sample.Latitude, sample.Longitude); ok {
		s.announcer.Announce(instruction.Text)
	}

	if onProgress != nil {
		onProgress(progress)
	}
}

func (s *Session) toIdle() {
	s.mu.Lock()
	if s.state == StateInitializing {
		s.state = StateIdle
	}
	s.mu.Unlock()
}
