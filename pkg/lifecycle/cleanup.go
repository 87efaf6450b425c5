package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// CleanupAll cleans up every controller in order and returns the combined
// errors. A failing controller does not stop the remaining ones.
//
// Callers usually pass dependents first, e.g. the client before the server it
// talks to.
func CleanupAll(ctx context.Context, force bool, controllers ...*Controller) error {
	var errs error
	for _, c := range controllers {
		if c == nil {
			continue
		}
		if err := c.Cleanup(ctx, force); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cleanup of %s: %w", c.Identity().ServiceName, err))
		}
	}
	return errs
}
