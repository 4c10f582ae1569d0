package messaging

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	LessonCreated  EventType = "lesson.created"
	LessonUpdated  EventType = "lesson.updated"
	LessonDeleted  EventType = "lesson.deleted"
	StudentCreated EventType = "student.created"
	StudentUpdated EventType = "student.updated"
	StudentDeleted EventType = "student.deleted"
)

// Event announces a committed change to a lesson or student
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	EntityID   uuid.UUID `json:"entityId"`
	OwnerID    uuid.UUID `json:"ownerId"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

func NewEvent(t EventType, entityID, ownerID uuid.UUID, data any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		EntityID:   entityID,
		OwnerID:    ownerID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}
