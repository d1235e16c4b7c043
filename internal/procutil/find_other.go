//go:build !linux

package procutil

import "errors"

// FindByCommandLine is only implemented on linux.
func FindByCommandLine(string) ([]int, error) {
	return nil, errors.ErrUnsupported
}
