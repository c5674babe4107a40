package staging

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	aberr "aiblame/internal/errors"
	"aiblame/internal/logging"
)

// lockPollInterval is how often a blocked acquisition retries.
const lockPollInterval = 25 * time.Millisecond

// flockGuard holds an exclusive advisory lock on the staging sidecar file.
// The sidecar persists across runs; the kernel releases the flock when the
// holder exits, so a crashed writer never wedges the staging area.
type flockGuard struct {
	path string
	fd   *os.File
}

// acquireLock takes the staging lock, polling until the timeout. A holder
// that exited releases its flock automatically; the PID written into the
// sidecar exists for diagnostics and for the stale-file fallback.
func acquireLock(ctx context.Context, path string, timeout time.Duration, logger *logging.Logger) (*flockGuard, error) {
	if runtime.GOOS == "windows" {
		return nil, aberr.New(aberr.StagingLocked,
			"staging locks require a Unix-like operating system", nil)
	}

	deadline := time.Now().Add(timeout)
	tookOver := false

	for {
		fd, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, aberr.New(aberr.StagingLocked, "cannot open staging lock file", err)
		}

		err = syscall.Flock(int(fd.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			_ = fd.Truncate(0)
			if _, werr := fd.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); werr != nil {
				_ = fd.Close()
				return nil, aberr.New(aberr.StagingLocked, "cannot record lock holder", werr)
			}
			return &flockGuard{path: path, fd: fd}, nil
		}
		_ = fd.Close()

		if !aberr.Is(err, syscall.EWOULDBLOCK) && !aberr.Is(err, syscall.EAGAIN) {
			return nil, aberr.New(aberr.StagingLocked, "failed to lock staging area", err)
		}

		if time.Now().After(deadline) {
			holder := readLockHolder(path)
			if !tookOver && holder > 0 && !processAlive(holder) {
				// Unreachable with plain flock semantics, but a lock held
				// through an inherited descriptor can outlive its owner.
				logger.Warn("taking over stale staging lock", map[string]interface{}{
					"path":      path,
					"holderPid": holder,
				})
				_ = os.Remove(path)
				tookOver = true
				continue
			}
			return nil, aberr.Newf(aberr.StagingLocked, nil,
				"staging area is locked by pid %d (waited %s)", holder, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, aberr.New(aberr.StagingLocked, "lock wait canceled", ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

// Release drops the lock. The sidecar file is left in place.
func (g *flockGuard) Release() {
	if g == nil || g.fd == nil {
		return
	}
	_ = syscall.Flock(int(g.fd.Fd()), syscall.LOCK_UN)
	_ = g.fd.Close()
	g.fd = nil
}

// readLockHolder returns the PID recorded in the sidecar, 0 if unreadable.
func readLockHolder(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// processAlive probes a PID with signal 0.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
