package crm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/voice-agent/internal/model"
)

// DefaultPushTimeout bounds one background push.
const DefaultPushTimeout = 30 * time.Second

// Async pushes calls to a Sink in the background so the caller's turn is
// never blocked by the CRM. Failures are logged.
type Async struct {
	sink    Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsync wraps sink. A non-positive timeout uses DefaultPushTimeout.
func NewAsync(sink Sink, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = DefaultPushTimeout
	}
	return &Async{sink: sink, timeout: timeout}
}

// Hook matches dialogue.CompletionHook. The call record is used after the
// hook returns, so callers must not mutate it.
func (a *Async) Hook(_ context.Context, call *model.CallRecord, profile model.LeadProfile) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.sink.Push(ctx, call, profile); err != nil {
			zap.L().Warn("crm: push failed", zap.String("call_id", call.ID), zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight pushes finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
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
