package model

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

type SeedVenue struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Capacity int    `yaml:"capacity"`
}

type SeedEvent struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	StartsAt    time.Time `yaml:"starts_at"`
	VenueID     string    `yaml:"venue_id"`
	Status      string    `yaml:"status"`
}

// Seed is a YAML fixture of venues and events, upserted on startup.
type Seed struct {
	Venues []SeedVenue `yaml:"venues"`
	Events []SeedEvent `yaml:"events"`
}

// seedNamespace scopes the name-based ids of seed rows without an explicit id,
// so the same fixture maps to the same rows on every start.
var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("evcal:seed"))

func (v SeedVenue) derivedID() string {
	return uuid.NewSHA1(seedNamespace, []byte("venue\x00"+v.Name)).String()
}

func (e SeedEvent) derivedID() string {
	key := "event\x00" + e.Title + "\x00" + e.StartsAt.UTC().Format(time.RFC3339Nano) + "\x00" + e.VenueID
	return uuid.NewSHA1(seedNamespace, []byte(key)).String()
}

func LoadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadSeed: %w", err)
	}
	return ParseSeed(raw)
}

func ParseSeed(raw []byte) (*Seed, error) {
	seed := new(Seed)
	if err := yaml.Unmarshal(raw, seed); err != nil {
		return nil, fmt.Errorf("ParseSeed: %w", err)
	}
	for i := range seed.Venues {
		if seed.Venues[i].ID == "" {
			seed.Venues[i].ID = seed.Venues[i].derivedID()
		}
	}
	for i := range seed.Events {
		if seed.Events[i].ID == "" {
			seed.Events[i].ID = seed.Events[i].derivedID()
		}
	}
	return seed, nil
}

// Apply upserts every venue then every event in one transaction.
func (s *Seed) Apply(ctx context.Context, db *bun.DB) error {
	if err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, v := range s.Venues {
			venue := &Venue{
				ID:       v.ID,
				Name:     v.Name,
				Address:  v.Address,
				Capacity: v.Capacity,
			}
			if err := venue.Upsert(ctx, tx); err != nil {
				return err
			}
		}
		for _, e := range s.Events {
			event := &Event{
				ID:          e.ID,
				Title:       e.Title,
				Description: e.Description,
				StartsAt:    e.StartsAt,
				VenueID:     e.VenueID,
				Status:      EventStatus(e.Status),
			}
			if err := event.Upsert(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("(*Seed).Apply: %w", err)
	}
	return nil
}
