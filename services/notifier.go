package services

import (
	"context"
	"dispatch_app_go/models"
	"log"
	"sync"
	"time"
)

// Event is a scheduling outcome worth telling someone about
type Event struct {
	Kind       string    `json:"kind"`
	BusinessID string    `json:"business_id"`
	BookingID  string    `json:"booking_id,omitempty"`
	SeriesID   string    `json:"series_id,omitempty"`
	ProviderID string    `json:"provider_id,omitempty"`
	Summary    string    `json:"summary"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier receives events fire-and-forget. Implementations must not block
// the caller on delivery and must never report delivery failures back.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Channel delivers an event to one destination
type Channel interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}

// NopNotifier drops every event
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}

// Dispatcher fans events out to its channels in background goroutines.
// mu orders wg.Add in Notify against wg.Wait in Flush and Close.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewDispatcher creates a dispatcher; nil channels are ignored
func NewDispatcher(channels ...Channel) *Dispatcher {
	d := &Dispatcher{timeout: 15 * time.Second}
	for _, ch := range channels {
		if ch != nil {
			d.channels = append(d.channels, ch)
		}
	}
	return d
}

// Notify hands the event to every channel without waiting for delivery
func (d *Dispatcher) Notify(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	// Delivery outlives the request that triggered it
	base := context.WithoutCancel(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		log.Printf("[NOTIFY] Dropping %s event for business %s: dispatcher is closed", event.Kind, event.BusinessID)
		return
	}
	for _, ch := range d.channels {
		d.wg.Add(1)
		go func(ch Channel) {
			defer d.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[NOTIFY] %s channel panicked on %s event: %v", ch.Name(), event.Kind, r)
				}
			}()

			deliverCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := ch.Deliver(deliverCtx, event); err != nil {
				log.Printf("[NOTIFY] %s channel failed on %s event for business %s: %v",
					ch.Name(), event.Kind, event.BusinessID, err)
			}
		}(ch)
	}
}

// Flush waits for in-flight deliveries. Notify calls made meanwhile block
// until the wait is over.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wg.Wait()
}

// Close waits for in-flight deliveries and drops every later event
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.wg.Wait()
}

func assignedEvent(booking *models.Booking, provider *models.Provider, source string, now time.Time) Event {
	kind := models.NotificationKindAssigned
	verb := "assigned to"
	if source == models.AssignmentSourceGrab {
		kind = models.NotificationKindGrabbed
		verb = "grabbed by"
	}
	return Event{
		Kind:       kind,
		BusinessID: booking.BusinessID,
		BookingID:  booking.ID,
		SeriesID:   derefString(booking.SeriesID),
		ProviderID: provider.ID,
		Summary: booking.CustomerName + " on " + booking.ScheduledDate.String() + " at " +
			booking.ScheduledTime.String() + " " + verb + " " + provider.Name,
		OccurredAt: now,
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
