// ABOUTME: Single-shot geolocation acquisition with a fixed accuracy/timeout policy.
// ABOUTME: Wraps a pluggable device provider behind the Gate type.

package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Acquisition errors
var (
	// ErrUnsupported means this host has no location capability configured.
	ErrUnsupported = errors.New("geolocation not supported on this host")
	// ErrDenied means the platform refused the location request.
	ErrDenied = errors.New("geolocation permission denied")
	// ErrUnavailable means the platform could not produce a position in time.
	ErrUnavailable = errors.New("geolocation unavailable")
)

// acquireTimeout bounds a single position request.
const acquireTimeout = 10 * time.Second

// Coordinate is a device position fix.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Options describe how a fix must be produced. Every Gate acquisition uses
// high accuracy and zero maximum staleness: cached fixes are never accepted.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// Provider is the platform location capability. Implementations must honor
// the context deadline and return ErrDenied or ErrUnavailable (possibly
// wrapped) on failure.
type Provider interface {
	Current(ctx context.Context, opts Options) (Coordinate, error)
}

// Gate wraps a Provider into the single-shot acquisition the attendance
// flow needs. Calling Acquire repeatedly is safe; each call is a fresh
// reading and a failure never disturbs a coordinate the caller already
// holds.
type Gate struct {
	provider Provider
	logger   *slog.Logger
}

// NewGate creates a Gate over the given provider. A nil provider produces
// a gate whose Acquire always fails with ErrUnsupported.
func NewGate(provider Provider, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		provider: provider,
		logger:   logger.With("component", "geo"),
	}
}

// Acquire requests one fresh position fix from the device.
func (g *Gate) Acquire(ctx context.Context) (Coordinate, error) {
	if g.provider == nil {
		return Coordinate{}, ErrUnsupported
	}

	ctx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	coord, err := g.provider.Current(ctx, Options{
		HighAccuracy: true,
		Timeout:      acquireTimeout,
		MaximumAge:   0,
	})
	if err != nil {
		if errors.Is(err, ErrDenied) {
			g.logger.Debug("location request denied")
			return Coordinate{}, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			g.logger.Debug("location request timed out")
			return Coordinate{}, ErrUnavailable
		}
		g.logger.Debug("location request failed", "error", err)
		if errors.Is(err, ErrUnavailable) {
			return Coordinate{}, err
		}
		return Coordinate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	g.logger.Debug("position acquired",
		"latitude", coord.Latitude,
		"longitude", coord.Longitude)
	return coord, nil
}
