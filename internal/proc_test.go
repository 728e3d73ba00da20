package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fakeProcTree lays out a minimal /proc-like directory.
func fakeProcTree(t *testing.T, comms map[int]string) string {
	t.Helper()
	root := t.TempDir()
	for pid, comm := range comms {
		dir := filepath.Join(root, fmt.Sprint(pid))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		if err := os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0o644); err != nil {
			t.Fatalf("writing comm for %d: %v", pid, err)
		}
	}
	// Non-pid entries must be ignored
	if err := os.MkdirAll(filepath.Join(root, "sys"), 0o755); err != nil {
		t.Fatalf("mkdir sys: %v", err)
	}
	return root
}

func TestSweepProcesses_MatchesCaseInsensitive(t *testing.T) {
	root := fakeProcTree(t, map[int]string{
		101: "soffice.bin",
		102: "SOFFICE.BIN",
		103: "bash",
		104: "soffice.bin2",
	})

	var killed []int
	_, err := sweepProcesses(root, func(pid int) error {
		killed = append(killed, pid)
		return nil
	}, "soffice.bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := map[int]bool{}
	for _, pid := range killed {
		got[pid] = true
	}
	if len(got) != 2 || !got[101] || !got[102] {
		t.Errorf("killed = %v, want exactly pids 101 and 102", killed)
	}
}

func TestSweepProcesses_KillFailureIsSkipped(t *testing.T) {
	root := fakeProcTree(t, map[int]string{
		201: "soffice.bin",
		202: "soffice.bin",
	})

	killed, err := sweepProcesses(root, func(pid int) error {
		if pid == 201 {
			return fmt.Errorf("operation not permitted")
		}
		return nil
	}, "soffice.bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(killed) != 1 || killed[0] != 202 {
		t.Errorf("killed = %v, want [202]", killed)
	}
}

func TestSweepProcesses_UnreadableRootIsAnError(t *testing.T) {
	if _, err := sweepProcesses(filepath.Join(t.TempDir(), "missing"), func(int) error { return nil }, "x"); err == nil {
		t.Fatal("expected error for missing proc root")
	}
}
