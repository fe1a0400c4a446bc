package middleware

import (
	"context"
	"errors"

	"venuecal/internal/app/commands"
)

var ErrReadOnly = errors.New("middleware: schedule is in read-only mode")

// Guard decides whether a command may run at all.
type Guard interface {
	Allow(ctx context.Context, cmd commands.Command) error
}

// ReadOnlyGuard rejects every write while Enabled reports true.
type ReadOnlyGuard struct {
	Enabled func() bool
}

func (g ReadOnlyGuard) Allow(context.Context, commands.Command) error {
	if g.Enabled != nil && g.Enabled() {
		return ErrReadOnly
	}
	return nil
}

func Guarded(g Guard) CommandMiddleware {
	if g == nil {
		panic("middleware: guard required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := g.Allow(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}
