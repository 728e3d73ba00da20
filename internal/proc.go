package internal

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SweepProcesses finds every running process whose command name matches
// name (case-insensitive, exact match) and kills it. Returns the pids
// that were signalled. The sweep is best-effort: unreadable entries and
// kill failures are skipped, and only a completely unreadable process
// table is reported as an error. The calling process itself is never
// signalled.
func SweepProcesses(name string) ([]int, error) {
	return sweepProcesses("/proc", killPid, name)
}

func sweepProcesses(procRoot string, kill func(pid int) error, name string) ([]int, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(strings.TrimSpace(name))
	self := os.Getpid()

	var killed []int
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid == self {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(procRoot, e.Name(), "comm"))
		if err != nil {
			// Process exited between ReadDir and ReadFile, or not ours to see.
			continue
		}
		if strings.ToLower(strings.TrimSpace(string(comm))) != want {
			continue
		}
		if err := kill(pid); err != nil {
			continue
		}
		killed = append(killed, pid)
	}
	return killed, nil
}

func killPid(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
