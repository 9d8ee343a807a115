package navigation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"waygroup/internal/config"
	"waygroup/internal/location"
	"waygroup/internal/models"
)

type fakeFetcher struct {
	route *models.NavigationRoute
	err   error
	calls int
}

func (f *fakeFetcher) FetchRoute(ctx context.Context, oLat, oLng, dLat, dLng float64, mode models.TravelMode) (*models.NavigationRoute, error) {
	f.calls++
	return f.route, f.err
}

type fakeSource struct {
	emit    func(models.RawPositionSample)
	stopped bool
	err     error
}

func (f *fakeSource) Subscribe(fn func(models.RawPositionSample)) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.emit = fn
	return func() { f.stopped = true }, nil
}

func grantAlways(ctx context.Context) error { return nil }

func newTestSession(fetcher RouteFetcher, source location.Source, sink Sink) *Session {
	cfg := config.NavigationConfig{ArrivalThreshold: 20}
	filter := location.NewSampleFilter(config.FilterConfig{MaxAccuracy: 15, MinSpeed: 0.3})
	announcer := NewAnnouncer(sink, cfg)
	return NewSession(fetcher, source, filter, announcer, grantAlways, cfg, zerolog.Nop())
}

func validParams() StartParams {
	return StartParams{OriginLat: 0, OriginLng: 0, DestLat: 0, DestLng: 0.01, Mode: models.TravelModeWalking}
}

func TestStartRejectsInvalidCoordinates(t *testing.T) {
	fetcher := &fakeFetcher{}
	s := newTestSession(fetcher, &fakeSource{}, &recordingSink{})

	params := validParams()
	params.DestLat = math.NaN()

	if err := s.Start(context.Background(), params); !errors.Is(err, ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatal("validation must fail before any route fetch")
	}
	if s.State() != StateIdle {
		t.Fatalf("expected idle state, got %s", s.State())
	}
}

func TestStartRejectsInvalidMode(t *testing.T) {
	s := newTestSession(&fakeFetcher{}, &fakeSource{}, &recordingSink{})

	params := validParams()
	params.Mode = "flying"

	if err := s.Start(context.Background(), params); !errors.Is(err, ErrInvalidTravelMode) {
		t.Fatalf("expected ErrInvalidTravelMode, got %v", err)
	}
}

func TestStartPermissionDenied(t *testing.T) {
	fetcher := &fakeFetcher{}
	cfg := config.NavigationConfig{ArrivalThreshold: 20}
	filter := location.NewSampleFilter(config.FilterConfig{MaxAccuracy: 15, MinSpeed: 0.3})
	deny := func(ctx context.Context) error { return ErrPermissionDenied }
	s := NewSession(fetcher, &fakeSource{}, filter, NewAnnouncer(&recordingSink{}, cfg), deny, cfg, zerolog.Nop())

	err := s.Start(context.Background(), validParams())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatal("denied permission must prevent the route fetch")
	}
	if s.State() != StateIdle {
		t.Fatalf("expected return to idle, got %s", s.State())
	}
}

func TestStartEmptyRoute(t *testing.T) {
	fetcher := &fakeFetcher{route: &models.NavigationRoute{}}
	s := newTestSession(fetcher, &fakeSource{}, &recordingSink{})

	if err := s.Start(context.Background(), validParams()); !errors.Is(err, ErrEmptyRoute) {
		t.Fatalf("expected ErrEmptyRoute, got %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected return to idle, got %s", s.State())
	}
}

func TestStartFetchError(t *testing.T) {
	fetchErr := errors.New("upstream down")
	s := newTestSession(&fakeFetcher{err: fetchErr}, &fakeSource{}, &recordingSink{})

	if err := s.Start(context.Background(), validParams()); !errors.Is(err, fetchErr) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected return to idle, got %s", s.State())
	}
}

func TestStartTwiceFails(t *testing.T) {
	fetcher := &fakeFetcher{route: &models.NavigationRoute{Distance: 800, Duration: 100, Steps: twoStepRoute().Steps}}
	s := newTestSession(fetcher, &fakeSource{}, &recordingSink{})

	if err := s.Start(context.Background(), validParams()); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := s.Start(context.Background(), validParams()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestSessionAdvancesAndAnnounces(t *testing.T) {
	route := twoStepRoute()
	fetcher := &fakeFetcher{route: &route}
	source := &fakeSource{}
	sink := &recordingSink{}
	s := newTestSession(fetcher, source, sink)

	if err := s.Start(context.Background(), validParams()); err != nil {
		t.Fatalf("start: %v", err)
	}

	speed := 2.0
	source.emit(models.RawPositionSample{Latitude: 0, Longitude: 0, Speed: &speed})

	progress, ok := s.Progress()
	if !ok {
		t.Fatal("expected progress while active")
	}
	if progress.CurrentStepIndex != 1 {
		t.Fatalf("expected advancement to step 1, got %d", progress.CurrentStepIndex)
	}
	if len(sink.spoken) == 0 {
		t.Fatal("expected an announcement")
	}
}

func TestSessionFiltersBadSamples(t *testing.T) {
	route := twoStepRoute()
	source := &fakeSource{}
	s := newTestSession(&fakeFetcher{route: &route}, source, &recordingSink{})

	if err := s.Start(context.Background(), validParams()); err != nil {
		t.Fatalf("start: %v", err)
	}

	badAccuracy := 100.0
	source.emit(models.RawPositionSample{Latitude: 0, Longitude: 0, Accuracy: &badAccuracy})

	progress, _ := s.Progress()
	if progress.CurrentStepIndex != 0 {
		t.Fatal("rejected sample must not advance progress")
	}
}

func TestStopTearsDown(t *testing.T) {
	route := twoStepRoute()
	source := &fakeSource{}
	s := newTestSession(&fakeFetcher{route: &route}, source, &recordingSink{})

	if err := s.Start(context.Background(), validParams()); err != nil {
		t.Fatalf("start: %v", err)
	}

	s.Stop()

	if !source.stopped {
		t.Fatal("expected position subscription released")
	}
	if s.State() != StateStopped {
		t.Fatalf("expected stopped state, got %s", s.State())
	}
	if _, ok := s.Progress(); ok {
		t.Fatal("expected no progress after stop")
	}

	// Samples still in flight after Stop must be ignored.
	speed := 2.0
	source.emit(models.RawPositionSample{Latitude: 0, Longitude: 0, Speed: &speed})
	if _, ok := s.Progress(); ok {
		t.Fatal("late sample must not revive progress")
	}
}

type hookedFetcher struct {
	route   *models.NavigationRoute
	onFetch func()
}

func (f *hookedFetcher) FetchRoute(ctx context.Context, oLat, oLng, dLat, dLng float64, mode models.TravelMode) (*models.NavigationRoute, error) {
	f.onFetch()
	return f.route, nil
}

func TestStopDuringInitializationWins(t *testing.T) {
	route := twoStepRoute()
	source := &fakeSource{}

	fetcher := &hookedFetcher{route: &route}
	cfg := config.NavigationConfig{ArrivalThreshold: 20}
	filter := location.NewSampleFilter(config.FilterConfig{MaxAccuracy: 15, MinSpeed: 0.3})
	s := NewSession(fetcher, source, filter, NewAnnouncer(&recordingSink{}, cfg), grantAlways, cfg, zerolog.Nop())

	// The caller stops while the route fetch is in flight.
	fetcher.onFetch = s.Stop

	if err := s.Start(context.Background(), validParams()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if s.State() != StateStopped {
		t.Fatalf("stop must win over a late start, got %s", s.State())
	}
	if !source.stopped {
		t.Fatal("expected the fresh position subscription released")
	}
	if _, ok := s.Progress(); ok {
		t.Fatal("expected no progress on a stopped session")
	}
}

func TestResetAllowsRestart(t *testing.T) {
	route := twoStepRoute()
	s := newTestSession(&fakeFetcher{route: &route}, &fakeSource{}, &recordingSink{})

	if err := s.Start(context.Background(), validParams()); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
	s.Reset()

	if s.State() != StateIdle {
		t.Fatalf("expected idle after reset, got %s", s.State())
	}
	if err := s.Start(context.Background(), validParams()); err != nil {
		t.Fatalf("restart after reset: %v", err)
	}
}
