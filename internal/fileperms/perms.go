// Package fileperms provides permission-mode parsing and type-safe
// permission constants to avoid hardcoded octal values.
package fileperms

import (
	"fmt"
	"os"
	"strconv"
)

// Common file permission modes with semantic names
const (
	// Directory permissions
	DirDefault  os.FileMode = 0o755 // rwxr-xr-x - Default directory permissions
	DirUserOnly os.FileMode = 0o700 // rwx------ - User-only directory

	// Regular file permissions
	FileDefault  os.FileMode = 0o644 // rw-r--r-- - Default file permissions
	FileUserOnly os.FileMode = 0o600 // rw------- - User-only file (for sensitive data)

	// Configuration file permissions
	ConfigFile os.FileMode = 0o640 // rw-r----- - Config files readable by group
	ConfigDir  os.FileMode = 0o750 // rwxr-x--- - Config directories

	// Log file permissions
	LogFile os.FileMode = 0o640 // rw-r----- - Log files readable by group
	LogDir  os.FileMode = 0o750 // rwxr-x--- - Log directories
)

// PermMask is the portion of a file mode this daemon manages: the
// owner/group/other rwx triple. Setuid, setgid and sticky bits are
// never touched.
const PermMask os.FileMode = 0o777

// Parse converts an octal permission string such as "644" or "777"
// into a file mode. Only 1-3 octal digits are accepted; anything that
// would set bits outside the rwx triple is rejected.
func Parse(s string) (os.FileMode, error) {
	if s == "" || len(s) > 3 {
		return 0, fmt.Errorf("invalid permission %q: want 1-3 octal digits", s)
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid permission %q: %w", s, err)
	}
	return os.FileMode(n), nil
}

// Format renders a file mode's permission bits as a 3-digit octal
// string, the inverse of Parse.
func Format(mode os.FileMode) string {
	return fmt.Sprintf("%03o", mode&PermMask)
}

// Compliant reports whether the observed mode already carries exactly
// the wanted permission bits.
func Compliant(observed, want os.FileMode) bool {
	return observed&PermMask == want&PermMask
}

// HasWorldAccess checks if the file mode allows world access
func HasWorldAccess(mode os.FileMode) bool {
	return mode.Perm()&0o007 != 0
}
