package gecko

import (
	"context"
	"time"
)

// Context creates a clone with a context that inherits the previous one
func (b *Browser) Context(ctx context.Context) *Browser {
	if ctx == b.ctx {
		return b
	}

	ctx, cancel := context.WithCancel(ctx)
	newObj := *b
	newObj.ctx = ctx
	newObj.ctxCancel = cancel
	return &newObj
}

// GetContext returns the current context
func (b *Browser) GetContext() context.Context {
	return b.ctx
}

// Cancel current context
func (b *Browser) Cancel() *Browser {
	b.ctxCancel()
	return b
}

// Timeout for chained sub-operations
func (b *Browser) Timeout(d time.Duration) *Browser {
	ctx, cancel := context.WithTimeout(b.ctx, d)
	newObj := b.Context(ctx)
	newObj.timeoutCancel = cancel
	return newObj
}

// CancelTimeout context
func (b *Browser) CancelTimeout() *Browser {
	if b.timeoutCancel != nil {
		b.timeoutCancel()
	}
	return b
}

// Context creates a clone with a context that inherits the previous one
func (el *Element) Context(ctx context.Context) *Element {
	if ctx == el.ctx {
		return el
	}

	ctx, cancel := context.WithCancel(ctx)
	newObj := *el
	newObj.ctx = ctx
	newObj.ctxCancel = cancel
	return &newObj
}

// Cancel current context
func (el *Element) Cancel() *Element {
	el.ctxCancel()
	return el
}

// Timeout for chained sub-operations
func (el *Element) Timeout(d time.Duration) *Element {
	ctx, cancel := context.WithTimeout(el.ctx, d)
	newObj := el.Context(ctx)
	newObj.timeoutCancel = cancel
	return newObj
}

// CancelTimeout context
func (el *Element) CancelTimeout() *Element {
	if el.timeoutCancel != nil {
		el.timeoutCancel()
	}
	return el
}
