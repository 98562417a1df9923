package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dendrascience/fastgen/internal/logger"
)

var ErrStopTimeout = errors.New("stager did not stop in time")

type (
	// Stager keeps a bounded queue of pre-built values topped up by a
	// background goroutine, so a cache miss can take ready material instead
	// of building it inline. The loop refills while the queue is below half
	// its capacity and otherwise sleeps for the idle interval.
	Stager[T any] struct {
		queue   chan T
		target  int
		produce func() T
		cfg     stagerConfig

		stop      chan struct{}
		done      chan struct{}
		started   atomic.Bool
		startOnce sync.Once
		stopOnce  sync.Once

		produced  atomic.Int64
		served    atomic.Int64
		fallbacks atomic.Int64
	}

	stagerConfig struct {
		idle        time.Duration
		joinTimeout time.Duration
		log         logger.Logger
	}

	StagerOption func(*stagerConfig)

	StagerStats struct {
		Capacity  int   `json:"capacity"`
		Queued    int   `json:"queued"`
		Produced  int64 `json:"produced"`
		Served    int64 `json:"served"`
		Fallbacks int64 `json:"fallbacks"`
	}
)

// WithIdle sets how long the loop sleeps once the queue reaches its target.
func WithIdle(d time.Duration) StagerOption {
	return func(c *stagerConfig) {
		if d > 0 {
			c.idle = d
		}
	}
}

// WithJoinTimeout bounds how long Stop waits for the loop to exit.
func WithJoinTimeout(d time.Duration) StagerOption {
	return func(c *stagerConfig) {
		if d > 0 {
			c.joinTimeout = d
		}
	}
}

func WithLogger(l logger.Logger) StagerOption {
	return func(c *stagerConfig) {
		if l != nil {
			c.log = l
		}
	}
}

func NewStager[T any](capacity int, produce func() T, opts ...StagerOption) (*Stager[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("staging capacity %d: %w", capacity, ErrInvalidCapacity)
	}
	cfg := stagerConfig{
		idle:        100 * time.Millisecond,
		joinTimeout: 5 * time.Second,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Stager[T]{
		queue:   make(chan T, capacity),
		target:  max(1, capacity/2),
		produce: produce,
		cfg:     cfg,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start launches the refill loop. It runs until Stop is called or ctx ends.
func (s *Stager[T]) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.loop(ctx)
	})
}

func (s *Stager[T]) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.idle)
	defer ticker.Stop()

	for {
		if len(s.queue) < s.target {
			if v, ok := s.safeProduce(); ok {
				select {
				case s.queue <- v:
					s.produced.Add(1)
				default:
				}
			}
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			default:
			}
			continue
		}

		select {
		case <-ticker.C:
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Stager[T]) safeProduce() (v T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.cfg.log.Error("staging producer panicked", "panic", r)
			ok = false
			time.Sleep(s.cfg.idle)
		}
	}()
	return s.produce(), true
}

// Take returns a staged value, or builds one inline when the queue is empty.
func (s *Stager[T]) Take() T {
	select {
	case v := <-s.queue:
		s.served.Add(1)
		return v
	default:
		s.fallbacks.Add(1)
		return s.produce()
	}
}

// Stop signals the loop and waits up to the join timeout for it to exit.
// Calling Stop on a stager that was never started is a no-op.
func (s *Stager[T]) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	if !s.started.Load() {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-time.After(s.cfg.joinTimeout):
		return ErrStopTimeout
	}
}

func (s *Stager[T]) Len() int {
	return len(s.queue)
}

func (s *Stager[T]) Stats() StagerStats {
	return StagerStats{
		Capacity:  cap(s.queue),
		Queued:    len(s.queue),
		Produced:  s.produced.Load(),
		Served:    s.served.Load(),
		Fallbacks: s.fallbacks.Load(),
	}
}
