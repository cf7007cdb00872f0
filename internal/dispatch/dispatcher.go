// Package dispatch runs inbound events on a fixed pool of workers, sharded
// by applicant id so that one applicant's events never run concurrently.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"applicant-gate/internal/common/config"
	apperrors "applicant-gate/internal/common/errors"
	"applicant-gate/internal/common/logger"
	"applicant-gate/internal/common/metrics"
	"applicant-gate/internal/common/observability"
	"applicant-gate/internal/models"
)

var ErrStopped = errors.New("DISPATCHER_STOPPED")

// HandlerFunc processes one event. Errors are counted and logged by the
// dispatcher; reporting them to users is the handler's job.
type HandlerFunc func(ctx context.Context, ev models.Event) error

type Dispatcher struct {
	shards  []chan models.Event
	handle  HandlerFunc
	timeout time.Duration
	obs     *observability.Observability
	logger  logger.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func New(cfg config.DispatchConfig, handle HandlerFunc, obs *observability.Observability, log logger.Logger) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queue := cfg.QueueSize
	if queue < 0 {
		queue = 0
	}

	shards := make([]chan models.Event, workers)
	for i := range shards {
		shards[i] = make(chan models.Event, queue)
	}

	return &Dispatcher{
		shards:  shards,
		handle:  handle,
		timeout: config.GetDuration(cfg.EventTimeout),
		obs:     obs,
		logger:  logger.ForComponent(log, "dispatch"),
	}
}

// ShardFor maps an applicant id to its worker.
func (d *Dispatcher) ShardFor(applicantID uint64) int {
	return int(applicantID % uint64(len(d.shards)))
}

// Submit queues ev on its shard, blocking while the shard is full.
func (d *Dispatcher) Submit(ctx context.Context, ev models.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		metrics.EventsDropped.WithLabelValues(string(ev.Kind)).Inc()
		return ErrStopped
	}

	shard := d.ShardFor(ev.ApplicantID)
	select {
	case d.shards[shard] <- ev:
		metrics.QueueDepth.WithLabelValues(strconv.Itoa(shard)).Set(float64(len(d.shards[shard])))
		return nil
	case <-ctx.Done():
		metrics.EventsDropped.WithLabelValues(string(ev.Kind)).Inc()
		return ctx.Err()
	}
}

// Run starts the workers and blocks until ctx is cancelled, then drains
// whatever is already queued before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	workCtx := context.WithoutCancel(ctx)

	for i, ch := range d.shards {
		d.wg.Add(1)
		go d.worker(workCtx, i, ch)
	}
	d.logger.Info("dispatcher started", map[string]interface{}{
		"workers": len(d.shards),
	})

	<-ctx.Done()
	d.Stop()
	return nil
}

// Stop refuses new events, lets the workers finish the queues and waits.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		d.wg.Wait()
		return
	}
	d.stopped = true
	for _, ch := range d.shards {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("dispatcher drained", nil)
}

func (d *Dispatcher) worker(ctx context.Context, shard int, ch <-chan models.Event) {
	defer d.wg.Done()
	label := strconv.Itoa(shard)

	for ev := range ch {
		metrics.QueueDepth.WithLabelValues(label).Set(float64(len(ch)))
		d.process(ctx, ev)
	}
}

func (d *Dispatcher) process(ctx context.Context, ev models.Event) {
	start := time.Now()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	err := d.safeHandle(ctx, ev)

	result := "ok"
	if err != nil {
		result = string(apperrors.CodeOf(err))
		d.logger.Debug("event finished with error", map[string]interface{}{
			"eventId":     ev.ID,
			"kind":        string(ev.Kind),
			"applicantId": ev.ApplicantID,
			"error":       err,
		})
	}

	metrics.EventsTotal.WithLabelValues(string(ev.Kind), result).Inc()
	d.obs.RecordEvent(ctx, string(ev.Kind), result, time.Since(start))
}

func (d *Dispatcher) safeHandle(ctx context.Context, ev models.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked", map[string]interface{}{
				"eventId":     ev.ID,
				"kind":        string(ev.Kind),
				"applicantId": ev.ApplicantID,
				"panic":       fmt.Sprint(r),
			})
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.handle(ctx, ev)
}
