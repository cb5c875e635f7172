package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// StorageKey is the namespace the venue selection is persisted under.
const StorageKey = "calendar_selected_venues"

const preferenceVersion = 1

var ErrUnknownPreferenceVersion = errors.New("unknown preference version")

// Storage is a per-viewer string key/value store.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

type persistedSelection struct {
	Version  int      `json:"version"`
	VenueIDs []string `json:"venueIds"`
}

// PreferenceStore reads and writes the selected venue set. It never fails
// the caller: storage errors are logged and reported to OnSaveError.
type PreferenceStore struct {
	storage Storage
	key     string

	OnSaveError func(error)
}

func NewPreferenceStore(storage Storage) *PreferenceStore {
	return &PreferenceStore{storage: storage, key: StorageKey}
}

// Load resolves the initial selection:
//  1. persisted ids that have events this year, if any survive
//  2. otherwise every venue with events this year
//  3. otherwise every venue
func (p *PreferenceStore) Load(ctx context.Context, allVenueIDs, withEvents []string) VenueSet {
	if saved, ok := p.read(ctx); ok {
		hasEvents := NewVenueSet(withEvents...)
		selected := NewVenueSet()
		for _, id := range saved {
			if hasEvents.Has(id) {
				selected.Add(id)
			}
		}
		if len(selected) > 0 {
			return selected
		}
	}
	if len(withEvents) > 0 {
		return NewVenueSet(withEvents...)
	}
	return NewVenueSet(allVenueIDs...)
}

// Save persists selected. Failures leave the in-memory selection authoritative.
func (p *PreferenceStore) Save(ctx context.Context, selected VenueSet) {
	if p == nil || p.storage == nil {
		return
	}
	data, err := json.Marshal(persistedSelection{
		Version:  preferenceVersion,
		VenueIDs: selected.IDs(),
	})
	if err == nil {
		err = p.storage.Set(ctx, p.key, string(data))
	}
	if err != nil {
		slog.Error("can't save venue selection", "key", p.key, "error", err)
		if p.OnSaveError != nil {
			p.OnSaveError(err)
		}
	}
}

func (p *PreferenceStore) read(ctx context.Context) ([]string, bool) {
	if p == nil || p.storage == nil {
		return nil, false
	}
	raw, ok, err := p.storage.Get(ctx, p.key)
	if err != nil {
		slog.Error("can't read venue selection", "key", p.key, "error", err)
		return nil, false
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, false
	}
	ids, err := decodeSelection(raw)
	if err != nil {
		slog.Warn("ignoring malformed venue selection", "key", p.key, "error", err)
		return nil, false
	}
	return ids, true
}

// decodeSelection accepts the versioned object and the older bare array.
func decodeSelection(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, fmt.Errorf("decodeSelection: legacy array: %w", err)
		}
		return ids, nil
	}
	var sel persistedSelection
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		return nil, fmt.Errorf("decodeSelection: %w", err)
	}
	if sel.Version != preferenceVersion {
		return nil, fmt.Errorf("decodeSelection: version %d: %w", sel.Version, ErrUnknownPreferenceVersion)
	}
	return sel.VenueIDs, nil
}
