package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const emitTimeout = 5 * time.Second

// Async wraps an EventEmitter so Emit never blocks the request path. Each event is handed
// to its own goroutine with a bounded timeout; failures are logged and dropped.
type Async struct {
	next EventEmitter
	log  *zap.Logger
	wg   sync.WaitGroup
}

// NewAsync returns an Async over next. A nil logger is replaced with a no-op logger.
func NewAsync(next EventEmitter, log *zap.Logger) *Async {
	if log == nil {
		log = zap.NewNop()
	}
	return &Async{next: next, log: log}
}

// Emit schedules delivery and returns nil immediately. The caller's context only contributes
// its values; cancellation of the request does not abort delivery.
func (a *Async) Emit(ctx context.Context, event *Event) error {
	if a == nil || a.next == nil || event == nil {
		return nil
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
		defer cancel()
		if err := a.next.Emit(emitCtx, event); err != nil {
			a.log.Warn("telemetry emit failed", zap.String("event_type", event.EventType), zap.Error(err))
		}
	}()
	return nil
}

// Drain waits for in-flight emits to finish or for ctx to end. Call it after the HTTP server
// has stopped and before the exporters are shut down.
func (a *Async) Drain(ctx context.Context) error {
	if a == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
