package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Interaction is one touchpoint with a donor: a call, an email, a
// meeting or anything else worth remembering.
type Interaction struct {
	ID         string    `json:"id"`
	DonorID    string    `json:"donor_id"`
	Type       string    `json:"type"`
	Notes      *string   `json:"notes"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// interactionTypes is the accepted set of interaction kinds.
var interactionTypes = map[string]bool{
	"call":    true,
	"email":   true,
	"meeting": true,
	"letter":  true,
	"other":   true,
}

// InteractionInput carries a new timeline entry.
type InteractionInput struct {
	Type       string     `json:"type"`
	Notes      *string    `json:"notes"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// ListInteractions returns a donor's timeline, newest first.
func (s *Service) ListInteractions(ctx context.Context, donorID string) ([]*Interaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, donor_id, type, notes, occurred_at, created_at
		FROM interactions WHERE donor_id = $1
		ORDER BY occurred_at DESC, id DESC`, donorID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	items := []*Interaction{}
	for rows.Next() {
		var it Interaction
		if err := rows.Scan(&it.ID, &it.DonorID, &it.Type, &it.Notes, &it.OccurredAt, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

// CreateInteraction appends a timeline entry for a donor. The timestamp
// defaults to now.
func (s *Service) CreateInteraction(ctx context.Context, donorID string, in InteractionInput) (*Interaction, error) {
	if !interactionTypes[in.Type] {
		return nil, errors.New("type must be one of: call, email, meeting, letter, other")
	}

	occurredAt := time.Now()
	if in.OccurredAt != nil {
		occurredAt = *in.OccurredAt
	}

	var it Interaction
	err := s.pool.QueryRow(ctx, `
		INSERT INTO interactions (donor_id, type, notes, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, donor_id, type, notes, occurred_at, created_at`,
		donorID, in.Type, in.Notes, occurredAt).
		Scan(&it.ID, &it.DonorID, &it.Type, &it.Notes, &it.OccurredAt, &it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create interaction: %w", err)
	}
	return &it, nil
}
