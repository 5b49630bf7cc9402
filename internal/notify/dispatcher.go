package notify

import (
	"context"
	"sync"
	"time"

	apperrors "hiring-entitlements/internal/common/errors"
	"hiring-entitlements/internal/common/logger"
	"hiring-entitlements/internal/common/metrics"

	"github.com/google/uuid"
)

// Hook handles one kind of side effect. Handle must be safe for concurrent use.
type Hook interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

type Dispatcher struct {
	hooks   []Hook
	timeout time.Duration
	backoff time.Duration
	logger  logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher returns a dispatcher delivering every event to every hook.
// timeout bounds one delivery including its retries.
func NewDispatcher(timeout time.Duration, log logger.Logger, hooks ...Hook) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		hooks:   hooks,
		timeout: timeout,
		backoff: 200 * time.Millisecond,
		logger:  log.WithFields(map[string]interface{}{"component": "hook-dispatcher"}),
	}
}

// Publish schedules e for delivery and returns immediately. Deliveries are
// detached from ctx's cancellation but keep its values.
func (d *Dispatcher) Publish(ctx context.Context, e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, dropping event", map[string]interface{}{
			"eventType": e.Type,
		})
		return
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	base := context.WithoutCancel(ctx)
	for _, h := range d.hooks {
		d.wg.Add(1)
		go d.deliver(base, h, e)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, h Hook, e Event) {
	defer d.wg.Done()

	name := h.Name()
	metrics.HooksActive.WithLabelValues(name).Inc()
	defer metrics.HooksActive.WithLabelValues(name).Dec()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var err error
	for attempt := 0; ; attempt++ {
		err = h.Handle(ctx, e)
		if err == nil {
			metrics.HookDeliveries.WithLabelValues(name, "success").Inc()
			return
		}
		if attempt >= apperrors.GetRetryCount(apperrors.Normalize(err).Code) {
			break
		}

		delay := d.backoff * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
			continue
		case <-ctx.Done():
		}
		break
	}

	metrics.HookDeliveries.WithLabelValues(name, "failure").Inc()
	d.logger.Error("hook delivery failed", map[string]interface{}{
		"hook":      name,
		"eventId":   e.ID,
		"eventType": e.Type,
		"error":     err.Error(),
	})
}

// Close stops accepting events and waits for in-flight deliveries.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
