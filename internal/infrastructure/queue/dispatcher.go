package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mokjang/youth-admin/internal/api/metrics"
	"github.com/mokjang/youth-admin/internal/core/domain"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	abandonTimeout = 5 * time.Second
)

// ErrStopped is the reason recorded for messages that arrive after shutdown.
var ErrStopped = errors.New("sms dispatcher stopped")

// Deliverer sends one queued SMS and records the outcome. Abandon records a
// message that will never be sent.
type Deliverer interface {
	Deliver(ctx context.Context, msg *domain.SMSMessage) error
	Abandon(ctx context.Context, msg *domain.SMSMessage, reason string)
}

// Dispatcher routes queued SMS messages to a fixed set of workers using
// consistent hashing on the phone number, so messages to one number are sent
// in the order they were queued.
type Dispatcher struct {
	workers []chan *domain.SMSMessage
	service Deliverer
	log     zerolog.Logger
	wg      sync.WaitGroup
	stopped chan struct{}

	// OnResult, when set, is called after every delivery attempt.
	OnResult func(msg *domain.SMSMessage, err error)
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service Deliverer, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan *domain.SMSMessage, numWorkers),
		service: service,
		log:     log,
		stopped: make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan *domain.SMSMessage, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// from then on Enqueue refuses new messages.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
	go func() {
		<-ctx.Done()
		close(d.stopped)
	}()
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands a message to the worker responsible for its phone number.
// The call is non-blocking up to channelBuffer capacity. After shutdown it
// marks the message failed and returns ErrStopped.
func (d *Dispatcher) Enqueue(msg *domain.SMSMessage) error {
	i := d.shardIndex(msg.Phone)
	select {
	case <-d.stopped:
		d.abandon(msg)
		return ErrStopped
	default:
	}
	select {
	case d.workers[i] <- msg:
	case <-d.stopped:
		d.abandon(msg)
		return ErrStopped
	}
	metrics.SMSQueueDepth.WithLabelValues(strconv.Itoa(i)).Set(float64(len(d.workers[i])))
	return nil
}

// EnqueueBatch enqueues a whole bulk send preserving per-number ordering and
// returns how many messages reached a worker.
func (d *Dispatcher) EnqueueBatch(msgs []*domain.SMSMessage) int {
	n := 0
	for _, m := range msgs {
		if err := d.Enqueue(m); err != nil {
			continue
		}
		n++
	}
	if n < len(msgs) {
		d.log.Warn().Int("dropped", len(msgs)-n).Msg("sms dispatcher stopped; messages marked failed")
	}
	return n
}

// abandon runs on a fresh context: the request or server context is usually
// already cancelled here.
func (d *Dispatcher) abandon(msg *domain.SMSMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), abandonTimeout)
	defer cancel()
	d.service.Abandon(ctx, msg, ErrStopped.Error())
	metrics.SMSDeliveredTotal.WithLabelValues(string(domain.SMSFailed)).Inc()
}

// drain marks whatever is still buffered in ch as failed.
func (d *Dispatcher) drain(ch <-chan *domain.SMSMessage) {
	for {
		select {
		case msg := <-ch:
			d.abandon(msg)
		default:
			return
		}
	}
}

func (d *Dispatcher) shardIndex(phone string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan *domain.SMSMessage) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain(ch)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			metrics.SMSQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
			start := time.Now()
			err := d.service.Deliver(ctx, msg)
			status := string(domain.SMSSent)
			if err != nil {
				status = string(domain.SMSFailed)
			}
			metrics.SMSDeliveredTotal.WithLabelValues(status).Inc()
			metrics.SMSDeliveryDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
			if err != nil {
				d.log.Error().Err(err).
					Str("sms_id", msg.ID).
					Str("batch_id", msg.BatchID).
					Int("worker_id", id).
					Msg("sms delivery failed")
			}
			if d.OnResult != nil {
				d.OnResult(msg, err)
			}
		}
	}
}
