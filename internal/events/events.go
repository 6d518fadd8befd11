package events

import (
	"context"
	"sync"
	"time"

	"bank-offers-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventOfferIngested is emitted when an ingestion batch stores new offers
	EventOfferIngested EventType = "offer.ingested"
	// EventDiscountResolved is emitted when a resolution query finds a best offer
	EventDiscountResolved EventType = "discount.resolved"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// OfferIngestedData contains data for offer ingestion events.
type OfferIngestedData struct {
	Offers     []models.Offer
	Identified int
	Created    int
}

// DiscountResolvedData contains data for resolution events.
type DiscountResolvedData struct {
	Bank       string
	Instrument string
	Amount     float64
	Discount   float64
	OfferID    string
	ResolvedAt time.Time
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously so a slow hook never blocks request handling.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	for _, handler := range handlers {
		go func(h Handler) {
			if err := h(ctx, event); err != nil {
				// In production, you might want to log this or send to error tracking
				_ = err
			}
		}(handler)
	}
}

// PublishOfferIngested publishes an offer ingestion event.
func (m *Manager) PublishOfferIngested(ctx context.Context, offers []models.Offer, identified, created int) {
	m.Publish(ctx, EventOfferIngested, OfferIngestedData{
		Offers:     offers,
		Identified: identified,
		Created:    created,
	})
}

// PublishDiscountResolved publishes a resolution event.
func (m *Manager) PublishDiscountResolved(ctx context.Context, bank, instrument string, amount, discount float64, offerID string) {
	m.Publish(ctx, EventDiscountResolved, DiscountResolvedData{
		Bank:       bank,
		Instrument: instrument,
		Amount:     amount,
		Discount:   discount,
		OfferID:    offerID,
		ResolvedAt: time.Now(),
	})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
