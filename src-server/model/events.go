package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type EventStatus string

const (
	EVENT_STATUS_DRAFT     = EventStatus("draft")
	EVENT_STATUS_PUBLISHED = EventStatus("published")
	EVENT_STATUS_ARCHIVED  = EventStatus("archived")
)

func (s EventStatus) Valid() bool {
	switch s {
	case EVENT_STATUS_DRAFT, EVENT_STATUS_PUBLISHED, EVENT_STATUS_ARCHIVED:
		return true
	}
	return false
}

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string      `bun:"id,pk"`            // required
	Title       string      `bun:"title,notnull"`    // required
	Description string      `bun:"description"`
	StartsAt    time.Time   `bun:"starts_at,notnull"` // stored in UTC
	VenueID     string      `bun:"venue_id,nullzero"`
	Status      EventStatus `bun:"status,notnull,type:varchar"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`

	Venue *Venue `bun:"rel:belongs-to,join:venue_id=id"`
}

func (e *Event) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("(*Event).Upsert: event id is blank")
	case strings.TrimSpace(e.Title) == "":
		return fmt.Errorf("(*Event).Upsert: title is blank")
	case e.StartsAt.IsZero():
		return fmt.Errorf("(*Event).Upsert: start date is blank")
	}
	if e.Status == "" {
		e.Status = EVENT_STATUS_DRAFT
	}
	if !e.Status.Valid() {
		return fmt.Errorf("(*Event).Upsert: unknown status %q", e.Status)
	}
	e.StartsAt = e.StartsAt.UTC()
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	if _, err := db.NewInsert().
		Model(e).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("description = EXCLUDED.description").
		Set("starts_at = EXCLUDED.starts_at").
		Set("venue_id = EXCLUDED.venue_id").
		Set("status = EXCLUDED.status").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Event).Upsert: %w", err)
	}
	return nil
}
