package observability

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownManagerRunsRegisteredFuncs(t *testing.T) {
	logger := NewLogger(ErrorLevel, &bytes.Buffer{})
	manager := NewShutdownManager(logger, nil, time.Second)

	var ran int32
	manager.RegisterShutdownFunc("pool", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	manager.RegisterShutdownFunc("sink", func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- manager.WaitForShutdown() }()

	// Give WaitForShutdown a moment to install its signal handler.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&ran))
}

func TestShutdownManagerReportsFuncErrors(t *testing.T) {
	logger := NewLogger(ErrorLevel, &bytes.Buffer{})
	manager := NewShutdownManager(logger, nil, time.Second)

	manager.RegisterShutdownFunc("audit sink", func(ctx context.Context) error {
		return errors.New("sink close failed")
	})

	done := make(chan error, 1)
	go func() { done <- manager.WaitForShutdown() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}

func TestRecoverPanicDoesNotPropagate(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	func() {
		defer RecoverPanic(logger, "test operation")
		panic("boom")
	}()

	assert.Contains(t, buf.String(), "PANIC recovered")
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))
	assert.EqualError(t, MustRecover("boom"), "panic: boom")
}
