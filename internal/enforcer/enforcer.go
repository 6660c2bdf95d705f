// Package enforcer applies the target permission mode to paths a scan
// found out of compliance.
package enforcer

import (
	"os"

	"github.com/jontk/permd/internal/errors"
	"github.com/jontk/permd/internal/fileperms"
	"github.com/jontk/permd/internal/logging"
	"github.com/jontk/permd/internal/scanner"
)

// Enforcer rewrites permission bits to exactly the target mode.
// Applying it is idempotent: re-applying the same mode is a no-op.
type Enforcer struct {
	target os.FileMode
}

// New creates an enforcer for the given target mode.
func New(target os.FileMode) *Enforcer {
	return &Enforcer{target: target & fileperms.PermMask}
}

// Apply sets every violating path's permission bits to the target
// mode. Individual failures are logged and skipped; the call only
// returns an error when every single change failed.
func (e *Enforcer) Apply(violations []scanner.Violation) error {
	if len(violations) == 0 {
		return nil
	}

	var firstErr error
	failed := 0
	for _, v := range violations {
		if err := os.Chmod(v.Path, e.target); err != nil {
			logging.WithError(err).Warn().Msgf("failed to change mode of %s", v.Path)
			if firstErr == nil {
				firstErr = errors.Enforce(v.Path, err)
			}
			failed++
			continue
		}
		logging.Infof("changed mode of %s from %s to %s",
			v.Path, fileperms.Format(v.Mode), fileperms.Format(e.target))
	}

	if failed == len(violations) {
		return errors.Wrapf(firstErr, errors.ErrorTypeEnforce,
			"all %d permission changes failed", failed)
	}
	return nil
}
