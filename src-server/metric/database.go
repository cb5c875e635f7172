package metric

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evcal/src-server/model"

	"github.com/uptrace/bun"
)

// ProbeEmptyRead times a primary key lookup on client_preferences, the table
// every live session reads from, with a key no client can hold.
func ProbeEmptyRead(ctx context.Context, db bun.IDB) (time.Duration, error) {
	start := time.Now()
	var pref model.ClientPreference
	err := db.NewSelect().
		Model(&pref).
		Where("? = ?", bun.Ident("client_id"), "").
		Where("? = ?", bun.Ident("key"), "").
		Limit(1).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("ProbeEmptyRead: %w", err)
	}
	return time.Since(start), nil
}
