//go:build !linux && !darwin

package utils

// ManageFdLimit is a no-op on platforms without setrlimit.
func ManageFdLimit() (changed bool, newLimit uint64, err error) {
	return false, 0, nil
}
