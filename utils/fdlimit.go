//go:build linux || darwin

package utils

import (
	"golang.org/x/sys/unix"
)

// targetFdLimit is enough open files for badger's value log and memtables.
const targetFdLimit = 8192

// ManageFdLimit raises the soft open-file limit towards targetFdLimit, bounded
// by the hard limit.
func ManageFdLimit() (changed bool, newLimit uint64, err error) {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return false, 0, err
	}

	if rlimit.Cur >= targetFdLimit {
		return false, rlimit.Cur, nil
	}

	target := uint64(targetFdLimit)
	if rlimit.Max < target {
		target = rlimit.Max
	}
	if target <= rlimit.Cur {
		return false, rlimit.Cur, nil
	}

	rlimit.Cur = target
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return false, 0, err
	}

	return true, target, nil
}
