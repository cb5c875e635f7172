package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type Venue struct {
	bun.BaseModel `bun:"table:venues"`

	ID       string `bun:"id,pk"`        // required
	Name     string `bun:"name,notnull"` // required
	Address  string `bun:"address"`
	Capacity int    `bun:"capacity"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (v *Venue) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case v.ID == "":
		return fmt.Errorf("(*Venue).Upsert: venue id is blank")
	case strings.TrimSpace(v.Name) == "":
		return fmt.Errorf("(*Venue).Upsert: name is blank")
	case v.Capacity < 0:
		return fmt.Errorf("(*Venue).Upsert: capacity is negative")
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	if _, err := db.NewInsert().
		Model(v).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("address = EXCLUDED.address").
		Set("capacity = EXCLUDED.capacity").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Venue).Upsert: %w", err)
	}
	return nil
}
