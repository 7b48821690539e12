package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sales-orchestrator/internal/common/logger"
)

// tracker runs detached work that outlives the request. Failures only reach the log.
type tracker struct {
	wg     sync.WaitGroup
	logger logger.Logger
}

func (t *tracker) Go(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("detached task panicked", map[string]interface{}{"task": name, "panic": fmt.Sprint(r)})
			}
		}()

		taskCtx := context.WithoutCancel(ctx)
		if timeout > 0 {
			var cancel context.CancelFunc
			taskCtx, cancel = context.WithTimeout(taskCtx, timeout)
			defer cancel()
		}

		if err := fn(taskCtx); err != nil {
			t.logger.Warn("detached task failed", map[string]interface{}{"task": name, "error": err.Error()})
		}
	}()
}

func (t *tracker) Wait() {
	t.wg.Wait()
}
