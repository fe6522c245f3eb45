// Package indexer persists the event journal to SQL so operators can audit
// point flows without replaying engine state.
package indexer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"alphapoints/core/events"
)

// AuditEvent is one row per emitted engine event. Attributes are stored as a
// JSON document so new event types need no migration.
type AuditEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type       string    `gorm:"size:64;index"`
	Address    string    `gorm:"size:64;index"`
	Attributes string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"index"`
}

// Indexer writes engine events to a relational store. It implements
// events.Emitter so it can be subscribed directly to the state manager.
type Indexer struct {
	db    *gorm.DB
	log   *slog.Logger
	nowFn func() time.Time
}

// Open connects to the configured backend and runs migrations. Supported
// drivers are "sqlite" (DSN defaults to an in-memory database) and "postgres".
func Open(driver, dsn string, log *slog.Logger) (*Indexer, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite", "":
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("indexer: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", driver, err)
	}
	return New(db, log)
}

// New wraps an existing gorm handle and runs migrations.
func New(db *gorm.DB, log *slog.Logger) (*Indexer, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := db.AutoMigrate(&AuditEvent{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{db: db, log: log, nowFn: time.Now}, nil
}

// SetNowFunc overrides the row timestamp clock.
func (ix *Indexer) SetNowFunc(now func() time.Time) {
	if now != nil {
		ix.nowFn = now
	}
}

// Emit implements events.Emitter. Persistence failures are logged rather than
// propagated: the journal is an audit surface and must not veto state changes.
func (ix *Indexer) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	raw := evt.Event()
	if raw == nil {
		return
	}
	attrs, err := json.Marshal(raw.Attributes)
	if err != nil {
		ix.log.Error("indexer: marshal attributes", "type", raw.Type, "err", err)
		return
	}
	row := AuditEvent{
		ID:         uuid.New(),
		Type:       raw.Type,
		Address:    primaryAddress(raw.Attributes),
		Attributes: string(attrs),
		CreatedAt:  ix.nowFn().UTC(),
	}
	if err := ix.db.Create(&row).Error; err != nil {
		ix.log.Error("indexer: insert event", "type", raw.Type, "err", err)
	}
}

// primaryAddress picks the attribute most useful for per-account queries.
func primaryAddress(attrs map[string]string) string {
	for _, key := range []string{"user", "owner", "caller"} {
		if v, ok := attrs[key]; ok {
			return v
		}
	}
	return ""
}

// EventsByType returns the newest events of the given type, capped at limit.
func (ix *Indexer) EventsByType(eventType string, limit int) ([]AuditEvent, error) {
	var rows []AuditEvent
	q := ix.db.Where("type = ?", eventType).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("indexer: query by type: %w", err)
	}
	return rows, nil
}

// EventsForAddress returns the newest events whose primary address matches,
// capped at limit.
func (ix *Indexer) EventsForAddress(addr string, limit int) ([]AuditEvent, error) {
	var rows []AuditEvent
	q := ix.db.Where("address = ?", addr).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("indexer: query by address: %w", err)
	}
	return rows, nil
}

// Close releases the underlying connection pool.
func (ix *Indexer) Close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
