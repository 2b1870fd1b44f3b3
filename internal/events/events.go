package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

const (
	EventEquipmentRegistered = "equipment_registered"
	EventEquipmentUpdated    = "equipment_updated"
	EventPersonRegistered    = "person_registered"
	EventPersonDeleted       = "person_deleted"
	EventOrderCreated        = "order_created"
	EventOrderCompleted      = "order_completed"
)

// LedgerEvents lists every event type the ledger emits.
var LedgerEvents = []string{
	EventEquipmentRegistered,
	EventEquipmentUpdated,
	EventPersonRegistered,
	EventPersonDeleted,
	EventOrderCreated,
	EventOrderCompleted,
}

// OrderEventPayload describes an order transition for event consumers.
type OrderEventPayload struct {
	OrderID      string     `json:"order_id"`
	OrderNumber  int        `json:"order_number"`
	PersonID     string     `json:"person_id"`
	PersonName   string     `json:"person_name"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	EquipmentIDs []string   `json:"equipment_ids"`
	ItemNames    []string   `json:"item_names"`
	DateOut      time.Time  `json:"date_out"`
	DateIn       *time.Time `json:"date_in,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedBy    string     `json:"created_by,omitempty"`
}

type EquipmentEventPayload struct {
	EquipmentID string `json:"equipment_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
}

type PersonEventPayload struct {
	PersonID string `json:"person_id"`
	FullName string `json:"full_name,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish runs every subscriber of the event type synchronously and
// returns their joined errors. A failing handler does not stop the others.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
