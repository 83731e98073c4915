package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/shandysiswandi/irnotify/internal/pkg/stacktrace"
)

// responder guards a message against being acked or nacked twice.
type responder struct {
	done atomic.Bool
}

func (r *responder) claim() bool { return !r.done.Swap(true) }

func (r *responder) responded() bool { return r.done.Load() }

type respondable interface {
	Message
	responded() bool
}

// deliver runs handler on msg, turning a panic into an error, and settles the
// message when autoAck is set and the handler did not settle it.
func deliver(ctx context.Context, driver string, handler Handler, msg respondable, autoAck bool) error {
	herr := callHandlerWithRecover(ctx, driver, func() error {
		return handler(ctx, msg)
	})
	if herr != nil {
		slog.WarnContext(ctx, "message handler failed", "driver", driver, "topic", msg.Topic(), "message_id", msg.ID(), "error", herr)
	}

	if msg.responded() || !autoAck {
		return herr
	}
	if herr == nil {
		return msg.Ack(ctx)
	}
	return msg.Nack(ctx)
}

func callHandlerWithRecover(ctx context.Context, driver string, fn func() error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic in message handler", "driver", driver, "panic", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic in message handler", "driver", driver, "panic", rvr, "stack", string(stack))
			}
			err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
		}
	}()

	return fn()
}
