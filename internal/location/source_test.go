package location

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"waygroup/internal/config"
	"waygroup/internal/geo"
	"waygroup/internal/models"
)

// Google's documented reference polyline, roughly 700km of three points.
const testPolyline = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func TestNewSimulatedSourceValidation(t *testing.T) {
	_, err := NewSimulatedSource(config.SimulationConfig{Polyline: "", SpeedMps: 1, Interval: time.Second}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for empty polyline")
	}

	_, err = NewSimulatedSource(config.SimulationConfig{Polyline: testPolyline, SpeedMps: 0, Interval: time.Second}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for non-positive speed")
	}
}

func TestSimulatedSourceReachesEndOfPath(t *testing.T) {
	// A speed high enough to cross the whole path in one tick.
	src, err := NewSimulatedSource(config.SimulationConfig{
		Polyline: testPolyline,
		SpeedMps: 1e9,
		Interval: time.Millisecond,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new source: %v", err)
	}

	var mu sync.Mutex
	var samples []models.RawPositionSample
	done := make(chan struct{})

	stop, err := src.Subscribe(func(sample models.RawPositionSample) {
		mu.Lock()
		samples = append(samples, sample)
		mu.Unlock()
		select {
		case <-done:
		default:
			close(done)
		}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("no sample emitted")
	}

	mu.Lock()
	last := samples[len(samples)-1]
	mu.Unlock()

	path := geo.DecodePolyline(testPolyline)
	end := path[len(path)-1]
	if geo.Distance(last.Latitude, last.Longitude, end[0], end[1]) > 1 {
		t.Fatalf("expected final sample at path end, got %f,%f", last.Latitude, last.Longitude)
	}
	if last.Speed == nil || *last.Speed != 1e9 {
		t.Fatal("expected sample to carry configured speed")
	}
}

func TestSimulatedSourceFansOutSameSamples(t *testing.T) {
	src, err := NewSimulatedSource(config.SimulationConfig{
		Polyline: testPolyline,
		SpeedMps: 1000,
		Interval: 5 * time.Millisecond,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new source: %v", err)
	}

	var mu sync.Mutex
	var first, second []models.RawPositionSample

	stopFirst, err := src.Subscribe(func(sample models.RawPositionSample) {
		mu.Lock()
		first = append(first, sample)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribe first: %v", err)
	}
	defer stopFirst()

	stopSecond, err := src.Subscribe(func(sample models.RawPositionSample) {
		mu.Lock()
		second = append(second, sample)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribe second: %v", err)
	}
	defer stopSecond()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		enough := len(first) >= 5 && len(second) >= 5
		mu.Unlock()
		if enough {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("not enough samples delivered")
		}
		time.Sleep(time.Millisecond)
	}

	// Both consumers hang off one walker, so after aligning on the second
	// subscriber's first sample the sequences are identical position for
	// position. The alignment covers the window where the walker ticked
	// between the two Subscribe calls.
	mu.Lock()
	defer mu.Unlock()
	offset := -1
	for i := range first {
		if first[i].Latitude == second[0].Latitude && first[i].Longitude == second[0].Longitude {
			offset = i
			break
		}
	}
	if offset < 0 {
		t.Fatalf("second subscriber's first sample %f,%f never seen by the first",
			second[0].Latitude, second[0].Longitude)
	}
	n := len(first) - offset
	if len(second) < n {
		n = len(second)
	}
	for i := 0; i < n; i++ {
		if first[offset+i].Latitude != second[i].Latitude || first[offset+i].Longitude != second[i].Longitude {
			t.Fatalf("sample %d diverged: %f,%f vs %f,%f",
				i, first[offset+i].Latitude, first[offset+i].Longitude, second[i].Latitude, second[i].Longitude)
		}
	}
}

func TestSimulatedSourceStopHaltsDelivery(t *testing.T) {
	src, err := NewSimulatedSource(config.SimulationConfig{
		Polyline: testPolyline,
		SpeedMps: 1,
		Interval: 10 * time.Millisecond,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new source: %v", err)
	}

	var mu sync.Mutex
	count := 0
	stop, err := src.Subscribe(func(models.RawPositionSample) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	stop()
	stop() // idempotent

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	after := count
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != after {
		t.Fatalf("samples delivered after stop: %d -> %d", after, count)
	}
}
