// ABOUTME: Unit tests for the geolocation gate and its providers.
// ABOUTME: Covers denial, unavailability, timeout mapping, and fresh-read behavior.

package geo

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeProvider scripts provider behavior for gate tests.
type fakeProvider struct {
	coord Coordinate
	err   error
	calls int
	// seenOpts records the options of the last Current call.
	seenOpts Options
}

func (f *fakeProvider) Current(ctx context.Context, opts Options) (Coordinate, error) {
	f.calls++
	f.seenOpts = opts
	if f.err != nil {
		return Coordinate{}, f.err
	}
	return f.coord, nil
}

func TestGate_Acquire(t *testing.T) {
	want := Coordinate{Latitude: 52.52, Longitude: 13.405}
	provider := &fakeProvider{coord: want}
	gate := NewGate(provider, nil)

	got, err := gate.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got != want {
		t.Errorf("Acquire() = %+v, want %+v", got, want)
	}

	if !provider.seenOpts.HighAccuracy {
		t.Error("HighAccuracy not requested")
	}
	if provider.seenOpts.MaximumAge != 0 {
		t.Errorf("MaximumAge = %v, want 0", provider.seenOpts.MaximumAge)
	}
	if provider.seenOpts.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", provider.seenOpts.Timeout)
	}
}

func TestGate_NoProviderIsUnsupported(t *testing.T) {
	gate := NewGate(nil, nil)

	_, err := gate.Acquire(context.Background())
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Acquire() error = %v, want ErrUnsupported", err)
	}
}

func TestGate_DeniedPassesThrough(t *testing.T) {
	gate := NewGate(&fakeProvider{err: ErrDenied}, nil)

	_, err := gate.Acquire(context.Background())
	if !errors.Is(err, ErrDenied) {
		t.Errorf("Acquire() error = %v, want ErrDenied", err)
	}
}

func TestGate_DeniedLeavesHeldCoordinateAlone(t *testing.T) {
	// The coordinate belongs to the caller; a failed acquisition must not
	// disturb it.
	gate := NewGate(&fakeProvider{coord: Coordinate{Latitude: 1, Longitude: 2}}, nil)

	held, err := gate.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	denying := NewGate(&fakeProvider{err: ErrDenied}, nil)
	if _, err := denying.Acquire(context.Background()); !errors.Is(err, ErrDenied) {
		t.Fatalf("Acquire() error = %v, want ErrDenied", err)
	}

	if held != (Coordinate{Latitude: 1, Longitude: 2}) {
		t.Errorf("held coordinate changed: %+v", held)
	}
}

func TestGate_TimeoutMapsToUnavailable(t *testing.T) {
	gate := NewGate(&fakeProvider{err: context.DeadlineExceeded}, nil)

	_, err := gate.Acquire(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Acquire() error = %v, want ErrUnavailable", err)
	}
}

func TestGate_OpaqueFailureWrapsUnavailable(t *testing.T) {
	gate := NewGate(&fakeProvider{err: errors.New("gps cold start")}, nil)

	_, err := gate.Acquire(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Acquire() error = %v, want ErrUnavailable", err)
	}
}

func TestGate_EachAcquireIsAFreshReading(t *testing.T) {
	provider := &fakeProvider{coord: Coordinate{Latitude: 3}}
	gate := NewGate(provider, nil)

	for i := 0; i < 3; i++ {
		if _, err := gate.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() #%d error = %v", i, err)
		}
	}
	if provider.calls != 3 {
		t.Errorf("provider called %d times, want 3", provider.calls)
	}
}

func TestStaticProvider(t *testing.T) {
	p := &StaticProvider{Coord: Coordinate{Latitude: -6.2, Longitude: 106.8}}

	got, err := p.Current(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if got != p.Coord {
		t.Errorf("Current() = %+v, want %+v", got, p.Coord)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Current(ctx, Options{}); err == nil {
		t.Error("Current() with cancelled context returned nil error")
	}
}

func TestCommandProvider_EmptyCommand(t *testing.T) {
	p := &CommandProvider{}
	if _, err := p.Current(context.Background(), Options{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Current() error = %v, want ErrUnsupported", err)
	}
}

func TestCommandProvider_ParsesJSON(t *testing.T) {
	p := &CommandProvider{Command: []string{"echo", `{"latitude": 48.8566, "longitude": 2.3522}`}}

	got, err := p.Current(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if got.Latitude != 48.8566 || got.Longitude != 2.3522 {
		t.Errorf("Current() = %+v", got)
	}
}

func TestCommandProvider_BadOutput(t *testing.T) {
	p := &CommandProvider{Command: []string{"echo", "no location for you"}}

	if _, err := p.Current(context.Background(), Options{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Current() error = %v, want ErrUnavailable", err)
	}
}
