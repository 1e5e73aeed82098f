package notify

import (
	"context"
	"sync"
	"time"

	"conference_registration/internal/logger"

	"github.com/rs/zerolog"
)

// Sender delivers one event. Errors are retried by the Dispatcher.
type Sender interface {
	Send(ctx context.Context, ev Event) error
}

// Preparer is implemented by senders with per-event work that must happen
// once, before the first delivery attempt.
type Preparer interface {
	Prepare(ev Event) (Event, error)
}

// Config tunes the dispatcher's queue and retry policy
type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
}

// Dispatcher queues events in memory and delivers them from a fixed set of
// worker goroutines. Enqueueing never blocks the caller.
type Dispatcher struct {
	sender Sender
	cfg    Config
	queue  chan Event
	log    zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Call Start before Notify.
func NewDispatcher(sender Sender, cfg Config) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{
		sender: sender,
		cfg:    cfg,
		queue:  make(chan Event, cfg.QueueSize),
		log:    logger.With("component", "notify"),
	}
}

// Start launches the workers. They exit once Close has drained the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for ev := range d.queue {
				d.deliver(ctx, ev)
			}
		}()
	}
}

// Notify enqueues ev. A full or closed queue drops the event with an error log.
func (d *Dispatcher) Notify(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Error().Str("kind", string(ev.Kind)).Int64("participant_id", ev.ParticipantID).Msg("dispatcher closed, notification dropped")
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.log.Error().Str("kind", string(ev.Kind)).Int64("participant_id", ev.ParticipantID).Msg("notification queue full, notification dropped")
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	if p, ok := d.sender.(Preparer); ok {
		prepared, err := p.Prepare(ev)
		if err != nil {
			d.log.Error().Err(err).Str("kind", string(ev.Kind)).Int64("participant_id", ev.ParticipantID).Msg("failed to prepare notification, giving up")
			return
		}
		ev = prepared
	}
	backoff := d.cfg.Backoff
	for attempt := 1; ; attempt++ {
		err := d.sender.Send(ctx, ev)
		if err == nil {
			d.log.Info().Str("kind", string(ev.Kind)).Int64("participant_id", ev.ParticipantID).Int("attempt", attempt).Msg("notification sent")
			return
		}
		if attempt >= d.cfg.MaxAttempts {
			d.log.Error().Err(err).Str("kind", string(ev.Kind)).Int64("participant_id", ev.ParticipantID).Int("attempts", attempt).Msg("notification failed, giving up")
			return
		}
		d.log.Warn().Err(err).Str("kind", string(ev.Kind)).Int64("participant_id", ev.ParticipantID).Int("attempt", attempt).Dur("retry_in", backoff).Msg("notification failed, retrying")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
