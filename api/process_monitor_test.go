package api

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessMonitor_Initialization(t *testing.T) {
	shutdownCalled := false
	shutdown := func() { shutdownCalled = true }

	monitor := NewProcessMonitor(shutdown)

	assert.Equal(t, os.Getppid(), monitor.parentPID)
	assert.Equal(t, 2*time.Second, monitor.checkInterval)
	assert.NotNil(t, monitor.shutdownFunc)
	assert.NotNil(t, monitor.stopChan)
	assert.False(t, shutdownCalled, "shutdown should not be called during initialization")
}

func TestProcessMonitor_GracefulStop(t *testing.T) {
	shutdownCalled := false
	shutdown := func() { shutdownCalled = true }

	monitor := NewProcessMonitor(shutdown)
	monitor.Start()

	time.Sleep(100 * time.Millisecond)
	monitor.Stop()
	time.Sleep(100 * time.Millisecond)

	assert.False(t, shutdownCalled, "shutdown should not be called when stopping gracefully")
}

func TestProcessMonitor_ShutdownCallback(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	shutdownCalled := false
	var mu sync.Mutex

	shutdown := func() {
		mu.Lock()
		shutdownCalled = true
		mu.Unlock()
		wg.Done()
	}

	monitor := NewProcessMonitor(shutdown)

	// Override check interval for faster testing.
	monitor.checkInterval = 10 * time.Millisecond

	// Simulate parent death by changing the stored parent PID; in real
	// scenarios the OS changes the PPID when the parent dies.
	monitor.parentPID = 99999

	monitor.Start()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for shutdown callback")
	}

	mu.Lock()
	defer mu.Unlock()
	require.True(t, shutdownCalled, "expected shutdown to be called when parent PID changes")
}

func TestProcessMonitor_MultipleStops(t *testing.T) {
	shutdown := func() {}

	monitor := NewProcessMonitor(shutdown)
	monitor.Start()

	time.Sleep(50 * time.Millisecond)

	assert.NotPanics(t, func() {
		monitor.Stop()
		monitor.Stop()
		monitor.Stop()
	})
}

func TestProcessMonitor_StopBeforeStart(t *testing.T) {
	shutdown := func() {}

	monitor := NewProcessMonitor(shutdown)

	assert.NotPanics(t, func() { monitor.Stop() })
}
