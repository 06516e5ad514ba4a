package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
)

// ErrCPUProfileActive is returned by StartCPU while another session runs.
var ErrCPUProfileActive = errors.New("cpu profile already active")

var (
	cpuMutex  sync.Mutex
	cpuActive bool
)

// Session is a running CPU profile.
type Session struct {
	f *os.File
}

// StartCPU starts CPU profiling to the file at path.
func StartCPU(path string) (*Session, error) {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()

	if cpuActive {
		return nil, ErrCPUProfileActive
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("start cpu profile: %w", err)
	}
	cpuActive = true
	return &Session{f: f}, nil
}

// Stop ends the session and closes its file. Stop on a nil or already
// stopped Session does nothing.
func (s *Session) Stop() error {
	if s == nil || s.f == nil {
		return nil
	}
	cpuMutex.Lock()
	defer cpuMutex.Unlock()

	pprof.StopCPUProfile()
	cpuActive = false
	err := s.f.Close()
	s.f = nil
	return err
}

// Active reports whether a CPU profile is running.
func Active() bool {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()
	return cpuActive
}

// WriteHeap writes a heap profile to path after forcing a collection so the
// snapshot reflects live objects only.
func WriteHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	runtime.GC()
	return pprof.WriteHeapProfile(f)
}
