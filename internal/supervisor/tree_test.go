package supervisor

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyService struct {
	runs     atomic.Int32
	failFor  int32
	stopped  chan struct{}
	stopOnce sync.Once
}

func (f *flakyService) Serve(ctx context.Context) error {
	if f.runs.Add(1) <= f.failFor {
		return errors.New("transient")
	}
	<-ctx.Done()
	f.stopOnce.Do(func() { close(f.stopped) })
	return ctx.Err()
}

func (f *flakyService) String() string { return "flaky" }

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestTreeRestartsFailedServiceAndStops(t *testing.T) {
	var out syncBuffer
	tree := New(zerolog.New(&out), TreeConfig{FailureBackoff: 10 * time.Millisecond, ShutdownTimeout: time.Second})

	svc := &flakyService{failFor: 2, stopped: make(chan struct{})}
	tree.AddWorker(svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tree.Serve(ctx) }()

	require.Eventually(t, func() bool { return svc.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}
	<-svc.stopped
	assert.Contains(t, out.String(), "flaky")
	assert.Contains(t, out.String(), `"level":"warn"`)
}
