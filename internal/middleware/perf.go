package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/perflog/perflog/internal/perf"
)

// PerfEmitter publishes fn_start/fn_end events. *bus.Bus satisfies it.
type PerfEmitter interface {
	EmitFnStart(ctx context.Context, ticket, api string, startedAt time.Time)
	EmitFnEnd(ctx context.Context, ticket string, endedAt time.Time)
}

// APIPerf brackets the handler with fn_start and fn_end under api.
// A nil emitter disables tracking.
func APIPerf(emitter PerfEmitter, api string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if emitter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ticket := perf.NewTicket()

			emitter.EmitFnStart(ctx, ticket, api, time.Now())
			defer func() {
				emitter.EmitFnEnd(ctx, ticket, time.Now())
			}()

			next.ServeHTTP(w, r)
		})
	}
}
