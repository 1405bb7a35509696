package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/repository"

	"github.com/google/uuid"
)

const (
	defaultQueueSize = 256
	maxBackoff       = time.Hour
)

type Options struct {
	MaxAttempts int
	// BaseBackoff is the wait after the first failure; it doubles per attempt.
	BaseBackoff time.Duration
	// Lease is how long a claimed record is reserved for one delivery.
	Lease     time.Duration
	QueueSize int
}

// Dispatcher is the notification outbox. Enqueue persists records and hands
// their ids to a worker pool; RetryDue picks up whatever the workers missed
// or failed to deliver.
type Dispatcher struct {
	repo   repository.NotificationRepository
	sender Sender
	opts   Options
	queue  chan uuid.UUID
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewDispatcher(repo repository.NotificationRepository, sender Sender, opts Options) *Dispatcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 30 * time.Second
	}
	if opts.Lease <= 0 {
		opts.Lease = time.Minute
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	return &Dispatcher{
		repo:   repo,
		sender: sender,
		opts:   opts,
		queue:  make(chan uuid.UUID, opts.QueueSize),
		now:    time.Now,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled; Wait
// blocks until they have.
func (d *Dispatcher) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-d.queue:
					if err := d.Deliver(ctx, id); err != nil {
						log.Printf("[notify] deliver %s: %v", id, err)
					}
				}
			}
		}()
	}
	log.Printf("[notify] %d workers started", workers)
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue stores the records as queued and schedules them. A full queue only
// delays delivery until the next retry sweep.
func (d *Dispatcher) Enqueue(notifs ...*model.Notification) error {
	if len(notifs) == 0 {
		return nil
	}
	for _, n := range notifs {
		n.Status = model.NotificationQueued
		if n.Channel == "" {
			n.Channel = "whatsapp"
		}
	}
	if err := d.repo.Create(notifs); err != nil {
		return err
	}
	for _, n := range notifs {
		select {
		case d.queue <- n.ID:
		default:
			log.Printf("[notify] queue full, %s left for retry sweep", n.ID)
		}
	}
	return nil
}

// Deliver sends one record if it can be claimed. Send failures are recorded
// on the record, not returned.
func (d *Dispatcher) Deliver(ctx context.Context, id uuid.UUID) error {
	now := d.now()
	claimed, err := d.repo.Claim(id, now, now.Add(d.opts.Lease))
	if err != nil || !claimed {
		return err
	}

	n, err := d.repo.FindByID(id)
	if err != nil {
		return err
	}
	if n.Attempts >= d.opts.MaxAttempts {
		return nil
	}

	attempts := n.Attempts + 1
	if sendErr := d.sender.Send(ctx, n.Target, n.Message); sendErr != nil {
		var next *time.Time
		if attempts < d.opts.MaxAttempts {
			t := d.now().Add(d.backoff(attempts))
			next = &t
		}
		log.Printf("[notify] %s to %s failed (attempt %d/%d): %v", n.Kind, n.Target, attempts, d.opts.MaxAttempts, sendErr)
		return d.repo.MarkFailed(id, attempts, sendErr.Error(), next)
	}
	return d.repo.MarkSent(id, attempts, d.now())
}

// RetryDue delivers every record that is due now and returns how many were
// attempted.
func (d *Dispatcher) RetryDue(ctx context.Context) (int, error) {
	ids, err := d.repo.Due(d.now(), d.opts.MaxAttempts, 100)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if err := d.Deliver(ctx, id); err != nil {
			log.Printf("[notify] retry %s: %v", id, err)
		}
	}
	return len(ids), nil
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	wait := d.opts.BaseBackoff
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
