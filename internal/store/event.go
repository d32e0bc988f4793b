package store

import (
	"database/sql"
	"time"
)

// Trigger event statuses.
const (
	EventStatusDispatched = "dispatched"
	EventStatusFailed     = "failed"
)

// Event records one dispatched actuator command.
type Event struct {
	ID           string
	Gesture      string
	PluginName   string
	CommandName  string
	Status       string
	Detail       string
	DispatchedAt time.Time
}

// EventRepository provides access to the trigger event log.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Insert appends an event to the log.
func (r *EventRepository) Insert(e *Event) error {
	if e.DispatchedAt.IsZero() {
		e.DispatchedAt = time.Now()
	}
	if e.Status == "" {
		e.Status = EventStatusDispatched
	}

	_, err := r.db.Exec(
		`INSERT INTO trigger_events (id, gesture, plugin_name, command_name, status, detail, dispatched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Gesture, e.PluginName, e.CommandName, e.Status, e.Detail, e.DispatchedAt,
	)
	return err
}

// Recent returns up to limit events, newest first.
func (r *EventRepository) Recent(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, gesture, plugin_name, command_name, status, detail, dispatched_at
		 FROM trigger_events ORDER BY dispatched_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.Gesture, &e.PluginName, &e.CommandName, &e.Status, &e.Detail, &e.DispatchedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// PruneBefore deletes events dispatched before the cutoff, returning
// the number removed.
func (r *EventRepository) PruneBefore(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM trigger_events WHERE dispatched_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
