package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ClientPreference is one key of a browser's local storage, kept server side
// and scoped to the client-id cookie.
type ClientPreference struct {
	bun.BaseModel `bun:"table:client_preferences"`

	ClientID  string    `bun:"client_id,pk"` // required
	Key       string    `bun:"key,pk"`       // required
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (p *ClientPreference) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case p.ClientID == "":
		return fmt.Errorf("(*ClientPreference).Upsert: client id is blank")
	case p.Key == "":
		return fmt.Errorf("(*ClientPreference).Upsert: key is blank")
	}
	p.UpdatedAt = time.Now().UTC()

	if _, err := db.NewInsert().
		Model(p).
		On("CONFLICT (client_id, key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*ClientPreference).Upsert: %w", err)
	}
	return nil
}
