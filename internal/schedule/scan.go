package schedule

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scan visits items in order, waiting gap between consecutive visits, and
// stops at the first item for which visit returns true. It returns the index
// of that item, or -1 when every item was visited without a hit. Visits are
// best-effort: visit handles its own failures and decides whether to go on.
func Scan[T any](ctx context.Context, clock clockwork.Clock, items []T, gap time.Duration, visit func(ctx context.Context, item T) bool) (int, error) {
	for i, item := range items {
		if i > 0 {
			if err := Sleep(ctx, clock, gap); err != nil {
				return -1, err
			}
		} else if err := ctx.Err(); err != nil {
			return -1, err
		}
		if visit(ctx, item) {
			return i, nil
		}
	}
	return -1, nil
}
