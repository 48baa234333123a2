// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the engine.
const (
	// Achievement events
	EventAchievementUnlocked    EventType = "achievement.unlocked"
	EventAchievementProgressed  EventType = "achievement.progressed"
	EventAchievementRecompleted EventType = "achievement.recompleted"

	// Streak events
	EventStreakStarted  EventType = "streak.started"
	EventStreakExtended EventType = "streak.extended"
	EventStreakReset    EventType = "streak.reset"

	// Notification events
	EventNotificationCreated EventType = "notification.created"

	// Stats events
	EventStatsRecomputed EventType = "stats.recomputed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType              `json:"type"`
	Timestamp   time.Time              `json:"timestamp"`
	AggregateId string                 `json:"aggregate_id"`
	Data        map[string]interface{} `json:"data"`
}

// NewBaseEvent constructs an event of the given type with an arbitrary payload.
func NewBaseEvent(eventType EventType, aggregateID string, occurredAt time.Time, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   occurredAt,
		AggregateId: aggregateID,
		Data:        data,
	}
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// Payload implements Event interface.
func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

// EventHandler processes a domain event. Returning an error does not stop
// delivery to other handlers.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber subscribes handlers to event types.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber

	// Close shuts the bus down, waiting for in-flight handlers.
	Close() error
}

// NopPublisher is an EventPublisher that discards all events.
// Useful for tests and for running the engine without an event bus.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) error { return nil }
