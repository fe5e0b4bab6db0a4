// Package ingress implements the event ingress pipeline: many session read
// loops publish events concurrently, a fixed set of workers consume them.
//
// Events are routed to a shard by hashing the picture id, and each shard is
// drained by exactly one worker. All events of one picture therefore run in
// publication order on a single goroutine, which is the per-picture critical
// section the edit coordinator relies on.
package ingress

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	ants "github.com/panjf2000/ants/v2"

	"github.com/lorrc/picture-collab/internal/core/domain"
	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
	"github.com/lorrc/picture-collab/internal/core/ports"
	"github.com/lorrc/picture-collab/internal/infrastructure/logging"
	"github.com/lorrc/picture-collab/internal/infrastructure/metrics"
)

// retryInterval bounds how long a blocked producer sleeps before re-checking a full shard.
const retryInterval = time.Millisecond

// Config holds pipeline sizing.
type Config struct {
	Shards     int // number of workers, one per shard
	BufferSize int // total slots, split evenly across shards
}

type shard struct {
	id       int
	label    string
	ring     *RingBuffer[domain.Event]
	notEmpty chan struct{}
	notFull  chan struct{}
}

// Pipeline buffers events in bounded rings and dispatches them to workers.
type Pipeline struct {
	shards    []*shard
	pool      *ants.Pool
	processor ports.EventProcessor
	logger    *slog.Logger
	metrics   *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	// gate orders enqueues before the close flag, so the workers' final
	// drain sees every accepted event
	gate      sync.RWMutex
	closed    atomic.Bool
	abandoned atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ ports.EventPublisher = (*Pipeline)(nil)

// New creates the pipeline and starts one worker per shard.
func New(cfg Config, processor ports.EventProcessor, logger *slog.Logger, m *metrics.Metrics) (*Pipeline, error) {
	if cfg.Shards <= 0 {
		cfg.Shards = 1
	}
	if cfg.BufferSize < cfg.Shards {
		cfg.BufferSize = cfg.Shards
	}

	logger = logger.With("component", "ingress_pipeline")

	pool, err := ants.NewPool(cfg.Shards,
		ants.WithPreAlloc(true),
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(v any) {
			logging.LogPanic(logger, v)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		shards:    make([]*shard, cfg.Shards),
		pool:      pool,
		processor: processor,
		logger:    logger,
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	perShard := uint64(cfg.BufferSize / cfg.Shards)
	for i := range p.shards {
		p.shards[i] = &shard{
			id:       i,
			label:    strconv.Itoa(i),
			ring:     NewRingBuffer[domain.Event](perShard),
			notEmpty: make(chan struct{}, 1),
			notFull:  make(chan struct{}, 1),
		}
	}

	for _, s := range p.shards {
		p.wg.Add(1)
		if err := pool.Submit(func() { p.runShard(s) }); err != nil {
			p.wg.Done()
			_ = p.Close(time.Second)
			return nil, fmt.Errorf("start shard worker %d: %w", s.id, err)
		}
	}

	logger.Info("ingress pipeline started",
		"shards", len(p.shards),
		"slots_per_shard", p.shards[0].ring.Cap(),
	)

	return p, nil
}

// Publish hands an event to the worker owning its picture. It blocks while the
// shard is full and fails with ErrOverloaded once ctx is done, or with
// ErrPipelineClosed after Close.
func (p *Pipeline) Publish(ctx context.Context, event domain.Event) error {
	if p.closed.Load() {
		return apperrors.ErrPipelineClosed
	}

	s := p.shardFor(event.ResourceKey())
	for {
		enqueued, err := p.tryEnqueue(s, event)
		if err != nil {
			p.metrics.PublishRejected.WithLabelValues("closed").Inc()
			return err
		}
		if enqueued {
			signal(s.notEmpty)
			p.metrics.EventsPublished.WithLabelValues(string(event.Kind)).Inc()
			p.metrics.QueueDepth.WithLabelValues(s.label).Set(float64(s.ring.Len()))
			return nil
		}

		select {
		case <-s.notFull:
		case <-time.After(retryInterval):
		case <-ctx.Done():
			p.metrics.PublishRejected.WithLabelValues("overloaded").Inc()
			return fmt.Errorf("%w: shard %d: %v", apperrors.ErrOverloaded, s.id, ctx.Err())
		case <-p.done:
			p.metrics.PublishRejected.WithLabelValues("closed").Inc()
			return apperrors.ErrPipelineClosed
		}
	}
}

// tryEnqueue attempts one enqueue under the read side of the gate.
func (p *Pipeline) tryEnqueue(s *shard, event domain.Event) (bool, error) {
	p.gate.RLock()
	defer p.gate.RUnlock()
	if p.closed.Load() {
		return false, apperrors.ErrPipelineClosed
	}
	return s.ring.Enqueue(event), nil
}

// Close stops accepting events, lets workers drain what is buffered and
// releases them. Events still queued when timeout expires are abandoned.
func (p *Pipeline) Close(timeout time.Duration) error {
	var err error
	p.closeOnce.Do(func() {
		p.gate.Lock()
		p.closed.Store(true)
		p.gate.Unlock()
		close(p.done)

		drained := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(drained)
		}()

		select {
		case <-drained:
			p.logger.Info("ingress pipeline drained")
		case <-time.After(timeout):
			p.abandoned.Store(true)
			p.logger.Warn("ingress pipeline drain timed out, abandoning queued events",
				"pending", p.Pending(),
			)
		}

		p.cancel()
		if releaseErr := p.pool.ReleaseTimeout(timeout); releaseErr != nil {
			err = fmt.Errorf("release worker pool: %w", releaseErr)
		}
	})
	return err
}

// Accepting reports whether Publish still takes new events.
func (p *Pipeline) Accepting() bool {
	return !p.closed.Load()
}

// Pending returns the number of events waiting across all shards.
func (p *Pipeline) Pending() int {
	n := 0
	for _, s := range p.shards {
		n += s.ring.Len()
	}
	return n
}

// Shards returns the number of ordered lanes.
func (p *Pipeline) Shards() int {
	return len(p.shards)
}

// ShardOf returns the lane index used for a picture.
func (p *Pipeline) ShardOf(pictureID int64) int {
	return p.shardFor(pictureID).id
}

func (p *Pipeline) shardFor(pictureID int64) *shard {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], uint64(pictureID))
	return p.shards[xxhash.Sum64(key[:])%uint64(len(p.shards))]
}

func (p *Pipeline) runShard(s *shard) {
	defer p.wg.Done()

	for {
		p.drain(s)

		select {
		case <-s.notEmpty:
		case <-p.done:
			p.drain(s)
			return
		}
	}
}

func (p *Pipeline) drain(s *shard) {
	for {
		if p.abandoned.Load() {
			return
		}
		event, ok := s.ring.Dequeue()
		if !ok {
			return
		}
		signal(s.notFull)
		p.metrics.QueueDepth.WithLabelValues(s.label).Set(float64(s.ring.Len()))
		p.dispatch(event)
	}
}

// dispatch runs one event. A failure or panic is confined to that event.
func (p *Pipeline) dispatch(event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogPanic(p.logger.With(
				"event_kind", string(event.Kind),
				"picture_id", event.PictureID,
				"session_id", event.SessionID.String(),
			), r)
			p.metrics.EventsProcessed.WithLabelValues(string(event.Kind), metrics.OutcomePanic).Inc()
			p.processor.ReportFailure(event, fmt.Errorf("%w: panic: %v", apperrors.ErrProcessingFailure, r))
		}
	}()

	ctx := logging.WithUserID(p.ctx, event.UserID)
	ctx = logging.WithPictureID(ctx, event.PictureID)
	ctx = logging.WithSessionID(ctx, event.SessionID.String())

	if err := p.processor.Process(ctx, event); err != nil {
		p.logger.Error("event processing failed",
			"event_kind", string(event.Kind),
			"picture_id", event.PictureID,
			"user_id", event.UserID,
			"session_id", event.SessionID.String(),
			"error", err,
		)
		p.metrics.EventsProcessed.WithLabelValues(string(event.Kind), metrics.OutcomeFailed).Inc()
		p.processor.ReportFailure(event, err)
		return
	}
	p.metrics.EventsProcessed.WithLabelValues(string(event.Kind), metrics.OutcomeOK).Inc()
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
