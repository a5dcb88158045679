package reactor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cherish-ltt/lynn-sundial/internal/manager"
	"github.com/cherish-ltt/lynn-sundial/internal/notice"
	"github.com/cherish-ltt/lynn-sundial/internal/pool"
	"github.com/cherish-ltt/lynn-sundial/internal/wheel"
	"github.com/cherish-ltt/lynn-sundial/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestReactorFiresRegisteredDisorderTask(t *testing.T) {
	w := wheel.New()
	p := pool.New(2)
	n := notice.New()
	m := manager.New(w)
	r := New(w, p, m, n)

	var fired int64
	_, err := m.Register("* * * * * ?", func(context.Context) {
		atomic.AddInt64(&fired, 1)
	}, types.Forever(), types.Disorder)
	require.NoError(t, err)

	r.Start()
	defer r.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&fired) >= 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestReactorStopIsIdempotent(t *testing.T) {
	r := New(wheel.New(), pool.New(1), manager.New(wheel.New()), notice.New())
	r.Start()
	r.Stop()
	r.Stop()
}

func TestRunUntilRespectsContextCancellation(t *testing.T) {
	r := New(wheel.New(), pool.New(1), manager.New(wheel.New()), notice.New())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.RunUntil(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunUntil did not return after context cancellation")
	}
}
