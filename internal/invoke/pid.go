package invoke

import (
	"fmt"
	"os"
	"path/filepath"
)

// PIDFileName is polled by the fz orchestrator to detect that an invocation
// has started, and read to signal a long-running backend externally.
const PIDFileName = "PID"

type pidMarker struct {
	path string
}

// writePIDMarker appends the invoker's pid as one line. Appending keeps any
// content another component put there; cleanup removes the whole file.
func writePIDMarker(dir string, pid int) (*pidMarker, error) {
	path := filepath.Join(dir, PIDFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("write pid marker: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", pid); err != nil {
		return nil, fmt.Errorf("write pid marker: %w", err)
	}

	return &pidMarker{path: path}, nil
}

// Release removes the marker. Best-effort: the orchestrator may already
// have removed it, and a failure here never fails the invocation.
func (m *pidMarker) Release() {
	if m == nil {
		return
	}
	_ = os.Remove(m.path)
}
