// Package analytics forwards engine events (index builds, searches, batch
// runs, evaluations) to an event sink without blocking the caller.
package analytics

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/kafka"
)

// Tracker accepts events for asynchronous delivery.
type Tracker interface {
	Track(event any)
}

// Publisher delivers a single event. *kafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// BatchPublisher is implemented by publishers that can write several events
// at once.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

const drainTimeout = 5 * time.Second

type nopTracker struct{}

func (nopTracker) Track(any) {}

// Nop discards every event.
var Nop Tracker = nopTracker{}

type Collector struct {
	publisher Publisher
	eventCh   chan any
	logger    *slog.Logger
	done      chan struct{}
	stopped   atomic.Bool
}

func NewCollector(publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan any, bufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the delivery loop. It runs until Close is called or ctx is
// cancelled, then drains whatever is still buffered.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.stopped.Store(true)
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event, dropping it when the buffer is full. Events
// tracked after the delivery loop stopped are held until Close.
func (c *Collector) Track(event any) {
	if c.stopped.Load() {
		c.logger.Debug("delivery loop stopped, event held until close")
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for buffered ones to be delivered,
// including any tracked after the delivery loop was cancelled.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
	c.drainRemaining()
}

func (c *Collector) publish(ctx context.Context, event any) {
	if err := c.publisher.Publish(ctx, kafka.Event{
		Key:   eventKey(event),
		Value: event,
	}); err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}

// drainRemaining flushes buffered events after cancellation, in a single
// write when the publisher supports batches.
func (c *Collector) drainRemaining() {
	var pending []kafka.Event
loop:
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				break loop
			}
			pending = append(pending, kafka.Event{Key: eventKey(event), Value: event})
		default:
			break loop
		}
	}
	if len(pending) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if bp, ok := c.publisher.(BatchPublisher); ok {
		if err := bp.PublishBatch(ctx, pending); err != nil {
			c.logger.Error("failed to flush analytics events", "count", len(pending), "error", err)
		}
		return
	}
	for _, e := range pending {
		if err := c.publisher.Publish(ctx, e); err != nil {
			c.logger.Error("failed to publish analytics event", "error", err)
		}
	}
}

func eventKey(event any) string {
	switch e := event.(type) {
	case IndexEvent:
		return string(e.Type)
	case SearchEvent:
		return string(e.Type)
	case BatchEvent:
		return string(e.Type)
	case EvaluationEvent:
		return string(e.Type)
	default:
		return "analytics"
	}
}
