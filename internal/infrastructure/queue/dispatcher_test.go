package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mokjang/youth-admin/internal/core/domain"
)

type recordingDeliverer struct {
	mu        sync.Mutex
	order     map[string][]string // phone -> message ids in delivery order
	fail      string
	abandoned []string
}

func (r *recordingDeliverer) Abandon(_ context.Context, msg *domain.SMSMessage, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abandoned = append(r.abandoned, msg.ID)
}

func (r *recordingDeliverer) Deliver(_ context.Context, msg *domain.SMSMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.order == nil {
		r.order = make(map[string][]string)
	}
	r.order[msg.Phone] = append(r.order[msg.Phone], msg.ID)
	if msg.ID == r.fail {
		return errors.New("gateway rejected")
	}
	return nil
}

func TestDispatcher_PreservesPerNumberOrder(t *testing.T) {
	rec := &recordingDeliverer{fail: "b2"}
	d := NewDispatcher(3, rec, zerolog.Nop())

	var (
		mu      sync.Mutex
		results int
		failed  int
		done    = make(chan struct{})
	)
	d.OnResult = func(_ *domain.SMSMessage, err error) {
		mu.Lock()
		defer mu.Unlock()
		results++
		if err != nil {
			failed++
		}
		if results == 6 {
			close(done)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	d.EnqueueBatch([]*domain.SMSMessage{
		{ID: "a1", Phone: "0101"}, {ID: "b1", Phone: "0102"}, {ID: "a2", Phone: "0101"},
		{ID: "b2", Phone: "0102"}, {ID: "a3", Phone: "0101"}, {ID: "c1", Phone: "0103"},
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for deliveries")
	}
	cancel()
	d.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if got := rec.order["0101"]; len(got) != 3 || got[0] != "a1" || got[1] != "a2" || got[2] != "a3" {
		t.Fatalf("unexpected order for 0101: %v", got)
	}
	if got := rec.order["0102"]; len(got) != 2 || got[0] != "b1" {
		t.Fatalf("unexpected order for 0102: %v", got)
	}
	if failed != 1 {
		t.Fatalf("expected one failure, got %d", failed)
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(0, &recordingDeliverer{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
	if d.shardIndex("01011112222") != d.shardIndex("01011112222") {
		t.Fatalf("shard index must be deterministic")
	}
}

func TestDispatcher_EnqueueAfterShutdownMarksFailed(t *testing.T) {
	rec := &recordingDeliverer{}
	d := NewDispatcher(1, rec, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()
	d.Wait()

	// Fill the shard so a plain send would block.
	for i := 0; i < channelBuffer; i++ {
		d.workers[0] <- &domain.SMSMessage{ID: "filler", Phone: "0101"}
	}

	done := make(chan int, 1)
	go func() {
		done <- d.EnqueueBatch([]*domain.SMSMessage{{ID: "late1", Phone: "0101"}, {ID: "late2", Phone: "0102"}})
	}()
	select {
	case n := <-done:
		if n != 0 {
			t.Fatalf("expected nothing enqueued, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("enqueue blocked after shutdown")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.abandoned) != 2 || rec.abandoned[0] != "late1" || rec.abandoned[1] != "late2" {
		t.Fatalf("expected both late messages abandoned, got %v", rec.abandoned)
	}
}

func TestDispatcher_ShutdownDrainsBufferedMessages(t *testing.T) {
	rec := &recordingDeliverer{}
	d := NewDispatcher(1, rec, zerolog.Nop())
	d.workers[0] <- &domain.SMSMessage{ID: "m1", Phone: "0101"}
	d.workers[0] <- &domain.SMSMessage{ID: "m2", Phone: "0101"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if got := len(rec.order["0101"]) + len(rec.abandoned); got != 2 {
		t.Fatalf("expected every buffered message delivered or abandoned, got %d", got)
	}
}
