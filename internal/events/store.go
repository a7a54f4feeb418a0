package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// MaxFetchLimit caps the number of events a single query may return so a
// dashboard batch stays bounded in memory.
const MaxFetchLimit = 200

// BulkDeleteConfirmation is the phrase an operator must supply to run the
// destructive bulk delete. There is no undo.
const BulkDeleteConfirmation = "DELETE ALL EVENTS"

// Filter describes an event query. Zero values mean "not filtered".
type Filter struct {
	EventType EventType
	SessionID string
	PageURL   string // substring match against page_url
	Since     time.Time
	Until     time.Time
	Limit     int
}

// Subscription represents a live insert feed registration. Cancel detaches
// the callback; it is safe to call more than once.
type Subscription struct {
	id    uint64
	store *Store
	once  sync.Once
}

// Cancel removes the subscription from the store.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subscribers, s.id)
		s.store.mu.Unlock()
	})
}

// Store is the typed gateway over the events table. It provides bounded
// range queries, a push-based insert feed, and the operator-gated bulk
// delete.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger

	mu          sync.Mutex
	nextSubID   uint64
	subscribers map[uint64]func(Event)
}

// NewStore creates an event store gateway over the given connection.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{
		db:          db,
		logger:      logger,
		subscribers: make(map[uint64]func(Event)),
	}
}

// FetchEvents returns events matching the filter, newest first. The limit
// is capped at MaxFetchLimit. A custom range with from after to yields an
// InvalidRangeError; storage failures yield a FetchError. An empty result
// is a valid answer ("no rows yet"), not a failure.
func (s *Store) FetchEvents(filter Filter) ([]Event, error) {
	if !filter.Since.IsZero() && !filter.Until.IsZero() && filter.Since.After(filter.Until) {
		return nil, &InvalidRangeError{From: filter.Since, To: filter.Until}
	}

	limit := filter.Limit
	if limit <= 0 || limit > MaxFetchLimit {
		limit = MaxFetchLimit
	}

	query := s.db.Model(&Event{})
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.SessionID != "" {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.PageURL != "" {
		query = query.Where("page_url LIKE ?", "%"+filter.PageURL+"%")
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at <= ?", filter.Until.UTC())
	}

	var results []Event
	err := query.Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, &FetchError{Op: "fetch", Err: err}
	}

	return results, nil
}

// SubscribeInserts registers a callback invoked for every event committed
// through Insert. The consumer must cancel the subscription on teardown.
func (s *Store) SubscribeInserts(fn func(Event)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = fn

	return &Subscription{id: id, store: s}
}

// Insert stores a new event and notifies all live subscribers. Events are
// immutable after this point.
func (s *Store) Insert(event *Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	err := sqlite.PerformWrite(s.logger, s.db, func(tx *gorm.DB) error {
		return tx.Create(event).Error
	})
	if err != nil {
		return &FetchError{Op: "insert", Err: err}
	}

	s.notify(*event)
	return nil
}

// notify fans the inserted event out to subscribers. The subscriber list
// is copied under lock so a callback cancelling itself cannot deadlock.
func (s *Store) notify(event Event) {
	s.mu.Lock()
	callbacks := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		callbacks = append(callbacks, fn)
	}
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(event)
	}
}

// Count returns the number of stored events.
func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&Event{}).Count(&count).Error; err != nil {
		return 0, &FetchError{Op: "count", Err: err}
	}
	return count, nil
}

// BulkDelete removes every stored event. It refuses to run unless the
// caller passes BulkDeleteConfirmation, since the operation is destructive
// and has no undo. Returns the number of deleted rows.
func (s *Store) BulkDelete(confirmation string) (int64, error) {
	if confirmation != BulkDeleteConfirmation {
		return 0, ErrConfirmationRequired
	}

	var deleted int64
	err := sqlite.PerformWrite(s.logger, s.db, func(tx *gorm.DB) error {
		result := tx.Where("1 = 1").Delete(&Event{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, &FetchError{Op: "bulk delete", Err: err}
	}

	s.logger.Info("Bulk-deleted all events", slog.Int64("deleted", deleted))
	return deleted, nil
}
