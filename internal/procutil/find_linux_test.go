//go:build linux

package procutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFindByCommandLine(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	write := func(pid string, cmdline string) {
		t.Helper()
		dir := filepath.Join(root, pid)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "cmdline"), []byte(cmdline), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("10", "python3\x00carelink_client2_proxy.py\x00")
	write("11", "python3\x00other.py\x00")
	write("12", "")
	write("13", "/usr/bin/python3\x00/opt/carelink_client2_proxy.py\x00--port\x008081\x00")
	write("99", "minimon\x00serve\x00carelink_client2_proxy.py\x00")
	write("self", "not a pid")

	got, err := findByCommandLine(root, "carelink_client2_proxy.py", 99)
	if err != nil {
		t.Fatalf("findByCommandLine() error = %v", err)
	}
	if diff := cmp.Diff([]int{10, 13}, got); diff != "" {
		t.Errorf("findByCommandLine() mismatch (-want +got):\n%s", diff)
	}
}

func TestFindByCommandLine_Self(t *testing.T) {
	t.Parallel()

	pids, err := FindByCommandLine(os.Args[0])
	if err != nil {
		t.Fatalf("FindByCommandLine() error = %v", err)
	}
	for _, pid := range pids {
		if pid == os.Getpid() {
			t.Fatal("FindByCommandLine should not return the calling process")
		}
	}
}
