package services

import (
	"encoding/json"
	"fmt"

	"listing-registry/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventService appends domain events to the event stream. Emission happens
// inside the caller's transaction so a mutation and its event commit as one.
type EventService struct{}

func NewEventService() *EventService {
	return &EventService{}
}

// Emit writes one event carrying the full post-state of the affected record.
func (s *EventService) Emit(
	tx *gorm.DB,
	kind models.EventKind,
	projectAddress string,
	actor string,
	state interface{},
) error {
	payload, err := toJSONB(state)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	event := models.DomainEvent{
		ID:             uuid.New(),
		Kind:           kind,
		ProjectAddress: projectAddress,
		Actor:          actor,
		Payload:        payload,
	}

	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

func toJSONB(state interface{}) (models.JSONB, error) {
	if state == nil {
		return nil, nil
	}
	if j, ok := state.(models.JSONB); ok {
		return j, nil
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}

	var payload models.JSONB
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
