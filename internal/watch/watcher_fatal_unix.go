// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

const watchLimitHint = "raise fs.inotify.max_user_watches or add ignore patterns for generated and vendored directories"

// isFatalWatchError reports inotify exhaustion. Angular projects hit it when
// a dist/ or vendored node_modules tree slips past the ignore list.
func isFatalWatchError(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
