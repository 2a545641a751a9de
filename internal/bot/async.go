package bot

import (
	"context"
	"sync"
)

// Handler processes one inbound update.
type Handler interface {
	Dispatch(ctx context.Context, upd Update)
}

// AsyncDispatcher runs each submitted update on its own goroutine under a
// process-lifetime context. Dispatches carry no deadline, so a long broadcast
// runs to completion unless the process is shutting down.
type AsyncDispatcher struct {
	ctx context.Context
	h   Handler
	wg  sync.WaitGroup
}

func NewAsyncDispatcher(ctx context.Context, h Handler) *AsyncDispatcher {
	return &AsyncDispatcher{ctx: ctx, h: h}
}

func (a *AsyncDispatcher) Submit(upd Update) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.h.Dispatch(a.ctx, upd)
	}()
}

// Wait blocks until every submitted update has been handled.
func (a *AsyncDispatcher) Wait() {
	a.wg.Wait()
}
