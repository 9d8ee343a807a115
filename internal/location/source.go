package location

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"waygroup/internal/config"
	"waygroup/internal/geo"
	"waygroup/internal/models"
)

// Source emits position samples in chronological order. The stop function
// returned by Subscribe detaches the callback and halts delivery.
type Source interface {
	Subscribe(fn func(models.RawPositionSample)) (stop func(), err error)
}

// SimulatedSource walks a decoded polyline at constant speed, emitting one
// sample per tick. It stands in for the device position stream during soak
// runs and tests. A single walker fans every tick out to all subscribers, so
// concurrent consumers observe the same sample sequence; the walker pauses
// while nobody is subscribed and resumes from its last position.
type SimulatedSource struct {
	path     [][2]float64
	speed    float64
	interval time.Duration
	logger   zerolog.Logger

	mu          sync.Mutex
	subscribers map[int]func(models.RawPositionSample)
	nextID      int
	walking     bool
	done        chan struct{}
	lat, lng    float64
	segment     int
}

func NewSimulatedSource(cfg config.SimulationConfig, logger zerolog.Logger) (*SimulatedSource, error) {
	path := geo.DecodePolyline(cfg.Polyline)
	if len(path) < 2 {
		return nil, fmt.Errorf("simulation polyline must decode to at least 2 points, got %d", len(path))
	}

	if cfg.SpeedMps <= 0 {
		return nil, fmt.Errorf("simulation speed must be positive, got %f", cfg.SpeedMps)
	}

	return &SimulatedSource{
		path:        path,
		speed:       cfg.SpeedMps,
		interval:    cfg.Interval,
		logger:      logger,
		subscribers: make(map[int]func(models.RawPositionSample)),
		lat:         path[0][0],
		lng:         path[0][1],
	}, nil
}

func (s *SimulatedSource) Subscribe(fn func(models.RawPositionSample)) (func(), error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	if !s.walking {
		s.walking = true
		s.done = make(chan struct{})
		go s.walk(s.done)
	}
	s.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			if len(s.subscribers) == 0 && s.walking {
				s.walking = false
				close(s.done)
			}
			s.mu.Unlock()
		})
	}

	return stop, nil
}

func (s *SimulatedSource) walk(done chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	stepMeters := s.speed * s.interval.Seconds()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		lat, lng, segment := s.lat, s.lng, s.segment

		remaining := stepMeters
		for remaining > 0 && segment < len(s.path)-1 {
			targetLat, targetLng := s.path[segment+1][0], s.path[segment+1][1]
			dist := geo.Distance(lat, lng, targetLat, targetLng)
			if dist <= remaining {
				lat, lng = targetLat, targetLng
				remaining -= dist
				segment++
			} else {
				lat, lng = geo.MoveToward(lat, lng, targetLat, targetLng, remaining)
				remaining = 0
			}
		}

		s.lat, s.lng, s.segment = lat, lng, segment

		atEnd := segment >= len(s.path)-1
		if atEnd {
			s.walking = false
		}

		fns := make([]func(models.RawPositionSample), 0, len(s.subscribers))
		for _, fn := range s.subscribers {
			fns = append(fns, fn)
		}
		s.mu.Unlock()

		speed := s.speed
		sample := models.RawPositionSample{
			Latitude:  lat,
			Longitude: lng,
			Speed:     &speed,
			Timestamp: time.Now(),
		}
		for _, fn := range fns {
			fn(sample)
		}

		if atEnd {
			s.logger.Info().
				Float64("lat", lat).
				Float64("lng", lng).
				Msg("simulated source reached end of path")
			return
		}
	}
}

var _ Source = (*SimulatedSource)(nil)
