package reconcile

import (
	"context"

	"github.com/jontk/permd/internal/config"
	"github.com/jontk/permd/internal/enforcer"
	"github.com/jontk/permd/internal/logging"
	"github.com/jontk/permd/internal/scanner"
)

// Reconciler executes reconciliation passes: for each watch root,
// scan for drift and chmod whatever the scan found. Passes are
// strictly sequential; the scheduler guarantees no two overlap.
type Reconciler struct {
	roots    []string
	scanner  *scanner.Scanner
	enforcer *enforcer.Enforcer
}

// Summary reports what one pass did.
type Summary struct {
	RootsScanned int
	Violations   int
	RootErrors   int
}

// New builds a reconciler from the loaded configuration.
func New(cfg *config.Config) (*Reconciler, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	return &Reconciler{
		roots:    append([]string(nil), cfg.WatchDirs...),
		scanner:  scanner.New(mode, cfg.IgnoreDirs),
		enforcer: enforcer.New(mode),
	}, nil
}

// RunPass scans every watch root in order and fixes what it finds.
// An error in one root never stops the others; persistent problems
// are retried naturally by the next pass.
func (r *Reconciler) RunPass(ctx context.Context) Summary {
	var sum Summary
	for _, root := range r.roots {
		if ctx.Err() != nil {
			return sum
		}

		violations, err := r.scanner.Scan(root)
		if err != nil {
			logging.WithError(err).Warn().Msgf("error checking permissions in %s", root)
			sum.RootErrors++
			continue
		}
		sum.RootsScanned++
		sum.Violations += len(violations)

		if len(violations) == 0 {
			continue
		}
		if err := r.enforcer.Apply(violations); err != nil {
			logging.WithError(err).Warn().Msgf("error fixing permissions in %s", root)
			sum.RootErrors++
		}
	}
	return sum
}

// Pass adapts RunPass to the scheduler's PassFunc, logging the
// outcome of each pass.
func (r *Reconciler) Pass(ctx context.Context) {
	sum := r.RunPass(ctx)
	logging.Debugf("pass complete: %d roots, %d violations, %d root errors",
		sum.RootsScanned, sum.Violations, sum.RootErrors)
}
