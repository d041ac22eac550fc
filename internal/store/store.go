// Package store persists delivery history and per-user configuration.
// The engine treats it as an external collaborator: write failures are
// reported but never abort a batch.
package store

import (
	"context"
	"time"

	"github.com/aozora-apps/sms-cli/internal/gateway"
	"github.com/aozora-apps/sms-cli/internal/model"
)

// Store defines the persistence interface for the delivery engine.
type Store interface {
	// History entries
	SaveEntry(ctx context.Context, userUID string, entry *model.HistoryEntry) error
	ListEntries(ctx context.Context, userUID string, limit int) ([]model.HistoryEntry, error)
	// HasRecentEntry reports whether an entry with the same normalized
	// name and comparable phone digits was stored after the given time.
	// The phone may be given in any spelling.
	HasRecentEntry(ctx context.Context, userUID, name, phone string, since time.Time) (bool, error)
	CountEntries(ctx context.Context, userUID string) (int, error)
	UpdateEntry(ctx context.Context, userUID string, entry *model.HistoryEntry) error

	// Per-user configuration (nil when the user has none)
	GetUserConfig(ctx context.Context, userUID string) (*model.UserConfig, error)
	PutUserConfig(ctx context.Context, userUID string, cfg model.UserConfig) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// comparablePhone reduces a phone number to its digits in local form so
// that local and international spellings of the same number collide in
// the duplicate check.
func comparablePhone(s string) string {
	return gateway.ToLocal(gateway.CanonicalDigits(s))
}
