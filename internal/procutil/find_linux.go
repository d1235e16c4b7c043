//go:build linux

package procutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FindByCommandLine returns the pids whose command line contains match. The
// calling process is never included.
func FindByCommandLine(match string) ([]int, error) {
	return findByCommandLine("/proc", match, os.Getpid())
}

func findByCommandLine(procRoot string, match string, self int) ([]int, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil, err
	}

	var pids []int
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid == self {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(procRoot, e.Name(), "cmdline"))
		if err != nil || len(raw) == 0 {
			// exited between ReadDir and ReadFile, or a kernel thread
			continue
		}
		cmdline := string(bytes.ReplaceAll(bytes.TrimRight(raw, "\x00"), []byte{0}, []byte{' '}))
		if strings.Contains(cmdline, match) {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}
