package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joseph-ayodele/fineprint/internal/common"
)

func TestRunsJobsAndDrainsOnShutdown(t *testing.T) {
	q := NewWorkerQueue(nil, WithWorkers(3), WithQueueSize(16))
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		err := q.Enqueue(context.Background(), Job{Kind: "test", Run: func(context.Context) error {
			ran.Add(1)
			return nil
		}})
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	q.Shutdown(context.Background())
	if ran.Load() != 10 {
		t.Errorf("ran %d jobs, want 10", ran.Load())
	}
	if err := q.Enqueue(context.Background(), Job{Run: func(context.Context) error { return nil }}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("enqueue after shutdown err = %v", err)
	}
}

func TestFullQueueRejectsWithoutBlocking(t *testing.T) {
	q := NewWorkerQueue(nil, WithWorkers(1), WithQueueSize(1))
	release := make(chan struct{})
	started := make(chan struct{})
	block := func(context.Context) error {
		close(started)
		<-release
		return nil
	}
	if err := q.Enqueue(context.Background(), Job{Run: block}); err != nil {
		t.Fatal(err)
	}
	<-started
	noop := func(context.Context) error { return nil }
	if err := q.Enqueue(context.Background(), Job{Run: noop}); err != nil {
		t.Fatalf("second job should fill the buffer: %v", err)
	}
	if err := q.Enqueue(context.Background(), Job{Run: noop}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("third job err = %v, want ErrQueueFull", err)
	}
	close(release)
	q.Shutdown(context.Background())
}

func TestJobsSurviveFailuresAndPanics(t *testing.T) {
	q := NewWorkerQueue(nil, WithWorkers(1))
	var after atomic.Bool
	_ = q.Enqueue(context.Background(), Job{Run: func(context.Context) error { return errors.New("boom") }})
	_ = q.Enqueue(context.Background(), Job{Run: func(context.Context) error { panic("worse") }})
	_ = q.Enqueue(context.Background(), Job{Run: func(context.Context) error { after.Store(true); return nil }})
	q.Shutdown(context.Background())
	if !after.Load() {
		t.Error("worker died before the last job")
	}
}

func TestJobCarriesRequestIDAndTimeout(t *testing.T) {
	q := NewWorkerQueue(nil, WithWorkers(1), WithJobTimeout(time.Second))
	got := make(chan string, 1)
	hasDeadline := make(chan bool, 1)
	ctx := common.WithRequestID(context.Background(), "req-42")
	_ = q.Enqueue(ctx, Job{Run: func(jctx context.Context) error {
		got <- common.RequestIDFromContext(jctx)
		_, ok := jctx.Deadline()
		hasDeadline <- ok
		return nil
	}})
	q.Shutdown(context.Background())
	if id := <-got; id != "req-42" {
		t.Errorf("request id = %q", id)
	}
	if !<-hasDeadline {
		t.Error("job context has no deadline")
	}
}
