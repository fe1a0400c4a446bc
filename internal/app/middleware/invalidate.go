package middleware

import (
	"context"

	"venuecal/internal/app/commands"
)

// Invalidator drops derived read state, such as cached responses.
type Invalidator interface {
	Invalidate()
}

// Invalidating clears inv after every command, whether or not it succeeded, since a
// failed multi-step write may still have touched the store.
func Invalidating(inv Invalidator) CommandMiddleware {
	if inv == nil {
		panic("middleware: invalidator required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			defer inv.Invalidate()
			return nextFn(ctx, cmd)
		})
	}
}
