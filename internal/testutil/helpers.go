package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// RunConcurrent calls fn from n goroutines and waits for all of them.
// A panicking worker fails the test instead of crashing the binary.
func RunConcurrent(t *testing.T, n int, fn func(workerID int)) {
	t.Helper()

	var wg sync.WaitGroup

	for i := range n {
		wg.Add(1)

		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("worker %d panicked: %v", i, r)
				}
			}()

			fn(i)
		}()
	}

	wg.Wait()
}

// AssertNoRaces runs fn from many goroutines at once. Pair it with
// `go test -race`.
func AssertNoRaces(t *testing.T, fn func(), iterations int) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping race detection test in short mode")
	}

	RunConcurrent(t, iterations, func(int) { fn() })
}

// WriteIgnoreFile writes lines as an ignore file in a temp directory and
// returns its path
func WriteIgnoreFile(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".nlsqlignore")
	content := strings.Join(lines, "\n") + "\n"

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write ignore file: %v", err)
	}

	return path
}
