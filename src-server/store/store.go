// Package store implements the calendar's backend collaborators on top of
// bun: the venue/event data source and the per-client preference storage.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"evcal/src-server/calendar"
	"evcal/src-server/model"

	"github.com/uptrace/bun"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type Store struct {
	db   *bun.DB
	lang language.Tag

	// OnRead and OnWrite receive query latencies. Both are optional.
	OnRead  func(time.Duration)
	OnWrite func(time.Duration)
}

// New wraps db. Venue names are ordered with the collation rules of lang.
func New(db *bun.DB, lang language.Tag) *Store {
	return &Store{db: db, lang: lang}
}

func (s *Store) DB() *bun.DB { return s.db }

// FetchVenues returns every venue ordered by name.
func (s *Store) FetchVenues(ctx context.Context) ([]calendar.Venue, error) {
	started := time.Now()
	venueModels := make([]model.Venue, 0)
	if err := s.db.NewSelect().
		Model(&venueModels).
		Column("id", "name").
		Order("name ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*Store).FetchVenues: %w", err)
	}
	s.observe(s.OnRead, started)

	// collators keep internal buffers, so each call gets its own
	collator := collate.New(s.lang)
	slices.SortStableFunc(venueModels, func(a, b model.Venue) int {
		return collator.CompareString(a.Name, b.Name)
	})

	venues := make([]calendar.Venue, 0, len(venueModels))
	for _, venueModel := range venueModels {
		venues = append(venues, calendar.Venue{ID: venueModel.ID, Name: venueModel.Name})
	}
	return venues, nil
}

// FetchPublishedEventsInRange returns published events with start in
// [start, end), ascending by start, each with its venue embedded.
func (s *Store) FetchPublishedEventsInRange(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	if !start.Before(end) {
		return []calendar.Event{}, nil
	}
	started := time.Now()
	eventModels := make([]model.Event, 0)
	if err := s.db.NewSelect().
		Model(&eventModels).
		Relation("Venue").
		Where("?TableAlias.status = ?", model.EVENT_STATUS_PUBLISHED).
		Where("?TableAlias.starts_at >= ?", start.UTC()).
		Where("?TableAlias.starts_at < ?", end.UTC()).
		OrderExpr("?TableAlias.starts_at ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*Store).FetchPublishedEventsInRange: %w", err)
	}
	s.observe(s.OnRead, started)

	events := make([]calendar.Event, 0, len(eventModels))
	for _, eventModel := range eventModels {
		event := calendar.Event{
			ID:          eventModel.ID,
			Title:       eventModel.Title,
			Description: eventModel.Description,
			StartsAt:    eventModel.StartsAt.UTC(),
			VenueID:     eventModel.VenueID,
		}
		if eventModel.Venue != nil && eventModel.Venue.ID != "" {
			event.Venue = &calendar.Venue{ID: eventModel.Venue.ID, Name: eventModel.Venue.Name}
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *Store) observe(hook func(time.Duration), started time.Time) {
	if hook != nil {
		hook(time.Since(started))
	}
}

// ClientStorage is the key/value storage of one browser, identified by
// its client-id cookie.
type ClientStorage struct {
	store    *Store
	clientID string
}

func (s *Store) ClientStorage(clientID string) *ClientStorage {
	return &ClientStorage{store: s, clientID: clientID}
}

func (c *ClientStorage) Get(ctx context.Context, key string) (string, bool, error) {
	started := time.Now()
	pref := new(model.ClientPreference)
	err := c.store.db.NewSelect().
		Model(pref).
		Where("client_id = ?", c.clientID).
		Where("? = ?", bun.Ident("key"), key).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("(*ClientStorage).Get: %w", err)
	}
	c.store.observe(c.store.OnRead, started)
	return pref.Value, true, nil
}

func (c *ClientStorage) Set(ctx context.Context, key, value string) error {
	started := time.Now()
	pref := &model.ClientPreference{
		ClientID: c.clientID,
		Key:      key,
		Value:    value,
	}
	if err := pref.Upsert(ctx, c.store.db); err != nil {
		return fmt.Errorf("(*ClientStorage).Set: %w", err)
	}
	c.store.observe(c.store.OnWrite, started)
	return nil
}

var (
	_ calendar.DataSource = (*Store)(nil)
	_ calendar.Storage    = (*ClientStorage)(nil)
)
